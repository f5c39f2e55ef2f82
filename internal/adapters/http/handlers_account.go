package web

import (
	"errors"
	"net/http"
	"strings"

	"investhub/internal/adapters/http/middleware"
	"investhub/internal/application/orchestrators"
	accountDomain "investhub/internal/domain/account"
)

// accountFormErrors are shown to the visitor verbatim; anything else is a 500.
var accountFormErrors = []error{
	accountDomain.ErrEmptyEmail,
	accountDomain.ErrInvalidEmail,
	accountDomain.ErrEmailTooLong,
	accountDomain.ErrNameTooLong,
	accountDomain.ErrEmptyPassword,
	accountDomain.ErrPasswordTooShort,
	accountDomain.ErrTokenExpired,
	accountDomain.ErrTokenInvalid,
	orchestrators.ErrEmailAlreadyExists,
	orchestrators.ErrInvalidCredentials,
	orchestrators.ErrAccountLocked,
	orchestrators.ErrPendingVerification,
	orchestrators.ErrPasswordFieldsRequired,
	orchestrators.ErrCurrentPasswordWrong,
	orchestrators.ErrNewPasswordSame,
}

func isAccountFormError(err error) bool {
	for _, target := range accountFormErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleRegister handles GET (form) and POST (sign up) for /register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "register.html", map[string]any{})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input := orchestrators.RegisterAccountInput{
			Email:    r.FormValue("Email"),
			Name:     r.FormValue("Name"),
			Password: r.FormValue("Password"),
		}
		if input.Password != r.FormValue("ConfirmPassword") {
			renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "register.html", map[string]any{
				"Error": "Passwords do not match.",
				"Email": input.Email,
				"Name":  input.Name,
			})
			return
		}

		_, err := orchestrators.ExecuteRegisterAccount(r.Context(), input, orchestrators.RegisterAccountDeps{
			AccountStore: stores.AccountStore,
			Mail:         mailDeps(),
			BaseURL:      site.BaseURL,
		})
		if err != nil {
			if !isAccountFormError(err) {
				internalError(w, err)
				return
			}
			renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "register.html", map[string]any{
				"Error": err.Error(),
				"Email": input.Email,
				"Name":  input.Name,
			})
			return
		}

		renderTemplate(w, r, "verify.html", map[string]any{
			"Sent":  true,
			"Email": accountDomain.NormalizeEmail(input.Email),
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleVerify handles GET /verify?token=
func handleVerify(w http.ResponseWriter, r *http.Request) {
	_, err := orchestrators.ExecuteVerifyEmail(r.Context(), r.URL.Query().Get("token"), orchestrators.VerifyEmailDeps{
		AccountStore: stores.AccountStore,
		Now:          timeNow,
	})
	if err != nil {
		if !isAccountFormError(err) {
			internalError(w, err)
			return
		}
		renderTemplateStatus(w, r, http.StatusBadRequest, "verify.html", map[string]any{
			"Error": err.Error(),
		})
		return
	}
	renderTemplate(w, r, "verify.html", map[string]any{
		"Verified": true,
	})
}

// handleResendVerification handles POST /resend-verification
func handleResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	addr := strings.TrimSpace(r.FormValue("Email"))
	err := orchestrators.ExecuteResendVerification(r.Context(), addr, orchestrators.RegisterAccountDeps{
		AccountStore: stores.AccountStore,
		Mail:         mailDeps(),
		BaseURL:      site.BaseURL,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "verify.html", map[string]any{
		"Sent":  true,
		"Email": accountDomain.NormalizeEmail(addr),
	})
}

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input := orchestrators.LoginInput{
			Email:    r.FormValue("Email"),
			Password: r.FormValue("Password"),
		}

		result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
			AccountStore: stores.AccountStore,
			Now:          timeNow,
		})
		if err != nil {
			if !isAccountFormError(err) {
				internalError(w, err)
				return
			}
			renderTemplateStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{
				"Error":   err.Error(),
				"Email":   input.Email,
				"Pending": errors.Is(err, orchestrators.ErrPendingVerification),
			})
			return
		}

		token, err := sessions.Create(result.AccountID, result.Email, result.Name, result.Role)
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, token, secureCookies())
		http.Redirect(w, r, "/", http.StatusSeeOther)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w, secureCookies())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleChangePassword handles GET (form) and POST (update) for /account/password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		renderTemplate(w, r, "password.html", map[string]any{})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
			AccountID:       sess.AccountID,
			CurrentPassword: r.FormValue("CurrentPassword"),
			NewPassword:     r.FormValue("NewPassword"),
		}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore})
		if err != nil {
			if !isAccountFormError(err) {
				internalError(w, err)
				return
			}
			renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "password.html", map[string]any{
				"Error": err.Error(),
			})
			return
		}
		renderTemplate(w, r, "password.html", map[string]any{
			"Changed": true,
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
