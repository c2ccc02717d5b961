package taxerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrorTypeUnrecognizedDocumentType, "UNRECOGNIZED_DOCUMENT_TYPE"},
		{ErrorTypeFieldExtractionWarning, "FIELD_EXTRACTION_WARNING"},
		{ErrorTypeInvalidFilerProfile, "INVALID_FILER_PROFILE"},
		{ErrorTypeUnsupportedFieldMapping, "UNSUPPORTED_FIELD_MAPPING"},
		{ErrorTypeTemplateLoad, "TEMPLATE_LOAD_ERROR"},
		{ErrorTypeUnknown, "UNKNOWN"},
		{ErrorType(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.et.String())
		})
	}
}

func TestErrorTypeClassification(t *testing.T) {
	assert.False(t, ErrorTypeFieldExtractionWarning.IsFatal())
	assert.True(t, ErrorTypeUnrecognizedDocumentType.IsFatal())
	assert.True(t, ErrorTypeInvalidFilerProfile.IsFatal())
	assert.True(t, ErrorTypeUnsupportedFieldMapping.IsConfiguration())
	assert.False(t, ErrorTypeTemplateLoad.IsConfiguration())
}

func TestErrorIsMatchesByType(t *testing.T) {
	err := NewWithContext(ErrorTypeUnrecognizedDocumentType, "no anchor matched", "statement.pdf")
	wrapped := fmt.Errorf("extracting: %w", err)

	assert.True(t, errors.Is(wrapped, ErrUnrecognizedDocumentType))
	assert.False(t, errors.Is(wrapped, ErrInvalidFilerProfile))
	assert.Equal(t, ErrorTypeUnrecognizedDocumentType, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("bad xref")
	err := Wrap(ErrorTypeTemplateLoad, "cannot parse template", cause)

	assert.Equal(t, "[TEMPLATE_LOAD_ERROR] cannot parse template: bad xref", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrTemplateLoad)
}

func TestWithViolationsCopies(t *testing.T) {
	base := New(ErrorTypeInvalidFilerProfile, "invalid filer profile")
	got := base.WithViolations("age must be >= 0", "dependents must be >= 0")

	require.Len(t, got.Violations, 2)
	assert.Empty(t, base.Violations)
	assert.Contains(t, got.Error(), "age must be >= 0; dependents must be >= 0")
}

func TestFieldExtractionWarning(t *testing.T) {
	w := FieldExtractionWarning{Field: "employer_ein", Message: "required field not found"}
	assert.Equal(t, "employer_ein: required field not found", w.String())
	assert.Equal(t, ErrorTypeFieldExtractionWarning, w.Type())

	bare := FieldExtractionWarning{Message: "low confidence"}
	assert.Equal(t, "low confidence", bare.String())
}
