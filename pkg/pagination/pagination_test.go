package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-4))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 789, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = ParseCursor("bm8tc2VwYXJhdG9y")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestTrim(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]row, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, row{at: base.Add(time.Duration(i) * time.Minute), id: uuid.New()})
	}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, key)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	cur, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, cur.ID)

	page, next = Trim(rows[:2], 2, key)
	assert.Len(t, page, 2)
	assert.Empty(t, next)
}
