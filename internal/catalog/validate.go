package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists the fields of a NewTopic that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid topic: " + strings.Join(e.Fields, "; ")
}

// NormalizeName trims and NFC-normalizes a topic name so that visually equal
// names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Validate normalizes nt in place and checks it.
func (nt *NewTopic) Validate() error {
	nt.Name = NormalizeName(nt.Name)
	for i := range nt.Questions {
		nt.Questions[i].Problem = strings.TrimSpace(nt.Questions[i].Problem)
	}

	err := validate.Struct(nt)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate topic: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return &ValidationError{Fields: fields}
}
