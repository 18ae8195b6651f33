package pdfextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextRejectsEmpty(t *testing.T) {
	_, err := ExtractText(nil, 0)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractText([]byte("plain text, not a pdf"), 100)
	assert.Error(t, err)
}
