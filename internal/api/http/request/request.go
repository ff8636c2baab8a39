// Package request decodes, sanitizes and validates JSON request bodies.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ntcogk/auth-server/internal/apierror"
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	iframeBlock = regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`)
)

// Clean strips <script> and <iframe> blocks and surrounding whitespace.
func Clean(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = iframeBlock.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Sanitizer is implemented by request bodies that clean their own
// free-text fields after decoding.
type Sanitizer interface {
	Sanitize()
}

// Decoder reads request bodies up to a size limit and validates them.
type Decoder struct {
	maxBytes int64
	validate *validator.Validate
	messages map[string]string
}

// NewDecoder creates a Decoder. messages maps "<json field>.<tag>" to the
// client message for that failure; "<json field>" alone is the fallback for
// any tag on the field.
func NewDecoder(maxBytes int64, messages map[string]string) *Decoder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Decoder{maxBytes: maxBytes, validate: v, messages: messages}
}

// Decode reads r's JSON body into dst, sanitizes and validates it. An empty
// body decodes as an empty object so required-field rules report it.
func (d *Decoder) Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if d.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, d.maxBytes)
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.New(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return apierror.BadRequest("Invalid request body")
	}

	if s, ok := dst.(Sanitizer); ok {
		s.Sanitize()
	}

	if errs := d.Validate(dst); len(errs) > 0 {
		return apierror.Validation(errs...)
	}

	return nil
}

// Validate runs the struct's validate tags and returns client messages in
// field order, without duplicates.
func (d *Decoder) Validate(v any) []string {
	err := d.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{"Invalid request"}
	}

	seen := make(map[string]struct{}, len(fieldErrs))
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := d.message(fe)
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}

	return out
}

func (d *Decoder) message(fe validator.FieldError) string {
	if msg, ok := d.messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := d.messages[fe.Field()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}
