package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/goccy/go-json"

	"github.com/supermancell/cinebuddy/internal/auth"
	"github.com/supermancell/cinebuddy/internal/common"
	"github.com/supermancell/cinebuddy/internal/logging"
)

// maxBodyBytes matches the usual 100kb JSON body limit.
const maxBodyBytes = 100 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	Status string       `json:"status"`
	Token  string       `json:"token"`
	User   userResponse `json:"user"`
}

type meResponse struct {
	Status string       `json:"status"`
	User   userResponse `json:"user"`
}

func toUserResponse(u *common.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, "User already exists")
		return
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, r, http.StatusBadRequest, "password must be at most 72 bytes")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Registration failed")
		writeError(w, r, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeJSON(w, r, http.StatusCreated, authResponse{
		Status: "success",
		Token:  session.Token,
		User:   toUserResponse(session.User),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Login failed")
		writeError(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, r, http.StatusOK, authResponse{
		Status: "success",
		Token:  session.Token,
		User:   toUserResponse(session.User),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Not authorized, no token")
		return
	}

	user, err := s.auth.CurrentUser(r.Context(), token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "Not authorized, token failed")
		return
	case errors.Is(err, common.ErrUserNotFound):
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to load current user")
		writeError(w, r, http.StatusInternalServerError, "Failed to load user")
		return
	}

	writeJSON(w, r, http.StatusOK, meResponse{Status: "success", User: toUserResponse(user)})
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the 400 response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
