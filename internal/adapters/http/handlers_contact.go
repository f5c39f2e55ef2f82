package web

import (
	"errors"
	"net/http"

	"investhub/internal/adapters/http/middleware"
	"investhub/internal/application/orchestrators"
	contactDomain "investhub/internal/domain/contact"
)

var contactFormErrors = []error{
	contactDomain.ErrEmptyName,
	contactDomain.ErrEmptyEmail,
	contactDomain.ErrInvalidEmail,
	contactDomain.ErrEmptyMessage,
	contactDomain.ErrFieldTooLong,
}

// handleContact handles GET (form) and POST (submit) for /contact
func handleContact(w http.ResponseWriter, r *http.Request) {
	sess, signedIn := middleware.GetSessionFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		form := map[string]string{"Subject": r.URL.Query().Get("subject")}
		if signedIn {
			form["Name"] = sess.Name
			form["Email"] = sess.Email
		}
		renderTemplate(w, r, "contact.html", map[string]any{"Form": form})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input := orchestrators.SubmitContactInput{
			Name:         r.FormValue("Name"),
			Email:        r.FormValue("Email"),
			Organisation: r.FormValue("Organisation"),
			Subject:      r.FormValue("Subject"),
			Message:      r.FormValue("Message"),
			Website:      r.FormValue("Website"),
			AccountID:    sess.AccountID,
		}

		_, err := orchestrators.ExecuteSubmitContact(r.Context(), input, orchestrators.SubmitContactDeps{
			ContactStore: stores.ContactStore,
			Mail:         mailDeps(),
			Inbox:        site.ContactInbox,
		})
		switch {
		case errors.Is(err, contactDomain.ErrSpamSuspected):
			// Same page as a real success so the bot learns nothing.
			renderTemplate(w, r, "contact.html", map[string]any{"Sent": true})
			return
		case err != nil:
			for _, target := range contactFormErrors {
				if errors.Is(err, target) {
					renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "contact.html", map[string]any{
						"Error": err.Error(),
						"Form": map[string]string{
							"Name":         input.Name,
							"Email":        input.Email,
							"Organisation": input.Organisation,
							"Subject":      input.Subject,
							"Message":      input.Message,
						},
					})
					return
				}
			}
			internalError(w, err)
			return
		}
		renderTemplate(w, r, "contact.html", map[string]any{"Sent": true})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
