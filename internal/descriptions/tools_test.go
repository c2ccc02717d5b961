package descriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAllToolNames(t *testing.T) {
	assert.Equal(t, []string{
		ToolCompute,
		ToolExtractDocument,
		ToolFillForm,
		ToolListDocuments,
		ToolServerInfo,
		ToolTemplateFields,
	}, GetAllToolNames())
}

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		info, ok := GetToolInfo(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, info.Name)
		assert.NotEmpty(t, info.Usage, name)
		assert.Equal(t, info.Description, GetToolDescription(name))
	}
	assert.Equal(t, "Tool description not available", GetToolDescription("pdf_read_file"))
}
