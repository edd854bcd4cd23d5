package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goalconvo/goalconvo/pkg/humaneval"
	"github.com/goalconvo/goalconvo/pkg/pipeline"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/versioning"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store not found", fmt.Errorf("%w: dialogue x", store.ErrNotFound), http.StatusNotFound},
		{"version not found", versioning.ErrNotFound, http.StatusNotFound},
		{"eval not found", fmt.Errorf("%w: task y", humaneval.ErrNotFound), http.StatusNotFound},
		{"invalid rating", humaneval.ErrInvalidRating, http.StatusBadRequest},
		{"empty dataset", versioning.ErrEmptyDataset, http.StatusConflict},
		{"run in progress", pipeline.ErrRunInProgress, http.StatusConflict},
		{"unsupported format", fmt.Errorf("%w %q", versioning.ErrUnsupportedFormat, "parquet"), http.StatusBadRequest},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := mapServiceError(tt.err)
			assert.Equal(t, tt.want, he.Code)
		})
	}
}
