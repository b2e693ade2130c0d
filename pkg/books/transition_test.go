package books

import (
	"testing"

	"github.com/bookstacks/bookstacks/pkg/models"
	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string {
	return &s
}

func TestComputeTransitionEffects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		oldStatus *string
		newStatus string
		expected  TransitionEffects
	}{
		{
			name:      "new book created directly in reading starts a reading",
			oldStatus: nil,
			newStatus: models.StatusReading,
			expected:  TransitionEffects{Reading: ReadingEffectStart},
		},
		{
			name:      "new book created in wishlist has no effects",
			oldStatus: nil,
			newStatus: models.StatusWishlist,
			expected:  TransitionEffects{},
		},
		{
			name:      "backlog to reading starts a reading and records a change",
			oldStatus: strptr(models.StatusBacklog),
			newStatus: models.StatusReading,
			expected:  TransitionEffects{Reading: ReadingEffectStart, RecordChange: true},
		},
		{
			name:      "reading to finished closes the reading",
			oldStatus: strptr(models.StatusReading),
			newStatus: models.StatusFinished,
			expected:  TransitionEffects{Reading: ReadingEffectFinish, RecordChange: true},
		},
		{
			name:      "reading to dnf abandons the reading",
			oldStatus: strptr(models.StatusReading),
			newStatus: models.StatusDNF,
			expected:  TransitionEffects{Reading: ReadingEffectAbandon, RecordChange: true},
		},
		{
			name:      "backlog to to-read records a change with no reading effect",
			oldStatus: strptr(models.StatusBacklog),
			newStatus: models.StatusToRead,
			expected:  TransitionEffects{RecordChange: true},
		},
		{
			name:      "unchanged status is a no-op",
			oldStatus: strptr(models.StatusReading),
			newStatus: models.StatusReading,
			expected:  TransitionEffects{},
		},
		{
			name:      "wishlist to finished still closes an open reading",
			oldStatus: strptr(models.StatusWishlist),
			newStatus: models.StatusFinished,
			expected:  TransitionEffects{Reading: ReadingEffectFinish, RecordChange: true},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ComputeTransitionEffects(tt.oldStatus, tt.newStatus))
		})
	}
}
