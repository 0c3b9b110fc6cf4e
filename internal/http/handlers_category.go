package http

import (
	"errors"
	"net/http"

	"rechnungen/internal/log"
	"rechnungen/internal/services"
)

func (s *Server) categoriesView(r *http.Request) (categoriesView, error) {
	cats, err := s.categories.List(r.Context())
	if err != nil {
		return categoriesView{}, err
	}
	v := categoriesView{Categories: cats, NoCategory: services.NoCategory}
	// The filter select is included as "category". A filter on a category
	// that no longer exists falls back to "Alle".
	if filter := r.FormValue("category"); filter != "" {
		for _, c := range cats {
			if c.Name == filter {
				v.FilterCategory = filter
				break
			}
		}
	}
	return v, nil
}

// handleCategoryList renders the category list plus out-of-band updates for
// every category select on the page.
func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	v, err := s.categoriesView(r)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Category list error", log.FieldError, err)
		InternalServerError("Fehler beim Laden der Kategorien").Write(w)
		return
	}
	s.render(w, r, nil, "categories.html", v)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	name := sanitizeInput(r.FormValue("name"))
	if err := s.categories.Add(r.Context(), name); err != nil {
		s.requestLogger(r).WarnContext(r.Context(), "Category not created",
			log.FieldCategory, name, log.FieldError, err)
		errorFor(err, "Fehler beim Anlegen der Kategorie").Write(w)
		return
	}

	v, err := s.categoriesView(r)
	if err != nil {
		InternalServerError("Fehler beim Laden der Kategorien").Write(w)
		return
	}
	s.render(w, r, NewHTMXResponse().
		TriggerFormReset().
		TriggerSuccessNotification("Kategorie „"+name+"“ hinzugefügt"), "categories.html", v)
}

// handleDeleteCategory removes a category; its invoices become uncategorized.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	if err := s.categories.Delete(r.Context(), id); err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Category delete failed",
			log.FieldCategoryID, id, log.FieldError, err)
		if errors.Is(err, services.ErrCategoryDelete) {
			InternalServerError("Kategorie konnte nicht gelöscht werden").Write(w)
			return
		}
		errorFor(err, "Fehler beim Löschen der Kategorie").Write(w)
		return
	}

	v, err := s.categoriesView(r)
	if err != nil {
		InternalServerError("Fehler beim Laden der Kategorien").Write(w)
		return
	}
	// The list reloads after the filter select was swapped, so it never
	// filters on the deleted category.
	s.render(w, r, NewHTMXResponse().
		TriggerAfterSwap(EventInvoicesRefresh, struct{}{}).
		TriggerReportRefresh().
		TriggerSuccessNotification("Kategorie gelöscht"), "categories.html", v)
}
