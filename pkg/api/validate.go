package api

import (
	"net/http"

	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/record"
)

// validateFields checks scalar fields against the named model's rules and
// writes the 400 field-error body itself on failure. Returns false when
// the request must not proceed; nothing is inserted on a validation
// failure.
func (s *Server) validateFields(w http.ResponseWriter, modelName string, fields map[string]string) bool {
	model, ok := s.registry.Lookup(modelName)
	if !ok {
		httputil.WriteBadRequest(w, "unknown model: "+modelName)
		return false
	}

	rec := &record.Record{}
	for _, field := range model.Fields {
		if value, present := fields[field.Name]; present {
			rec.Set(field.Name, record.String(value))
		}
	}

	if errs := s.registry.ValidateRecord(model, rec); errs != nil {
		httputil.WriteFieldErrors(w, errs)
		return false
	}
	return true
}
