package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/pbaille/autojournal/internal/errors"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names in messages
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. Missing required
// fields become MISSING_FIELD errors, other rule failures VALIDATION.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return appErrors.NewValidation("request body too large")
		}
		return appErrors.NewValidation("invalid request body")
	}
	err := s.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.NewValidation(err.Error())
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fe.Field()+" failed "+fe.Tag())
	}
	if len(missing) > 0 {
		return appErrors.NewMissingField(missing...)
	}
	return appErrors.NewValidation(strings.Join(invalid, "; "))
}

// urlParam returns the entry URL carried, percent-encoded, in the path tail.
func urlParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", appErrors.NewInvalidURL(raw, err)
	}
	if decoded == "" {
		return "", appErrors.NewMissingField("url")
	}
	return decoded, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, appErrors.NewValidation(key + " must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErrors.HTTPStatusOf(err)
	body := errorBody{Error: appErrors.MessageOf(err), Code: string(appErrors.TypeOf(err))}
	if !s.opts.Production {
		body.Detail = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}
