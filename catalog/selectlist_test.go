package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectableList_Empty(t *testing.T) {
	var l SelectableList[string]

	_, ok := l.Current()
	assert.False(t, ok)
	_, ok = l.Next()
	assert.False(t, ok)
	_, ok = l.Prev()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Pointer())

	l.Select()
	_, ok = l.Selected()
	assert.False(t, ok)
	assert.False(t, l.CurrentIsSelected())
}

func TestSelectableList_Wraps(t *testing.T) {
	l := NewSelectableList("a", "b", "c")

	cur, ok := l.Current()
	assert.True(t, ok)
	assert.Equal(t, "a", cur)

	cur, _ = l.Prev()
	assert.Equal(t, "c", cur)

	cur, _ = l.Next()
	assert.Equal(t, "a", cur)

	for i := 0; i < 3; i++ {
		l.Next()
	}
	assert.Equal(t, 0, l.Pointer())
}

func TestSelectableList_NextPrevRoundTrip(t *testing.T) {
	for n := 1; n <= 5; n++ {
		items := make([]int, n)
		l := NewSelectableList(items...)
		for start := 0; start < n; start++ {
			before := l.Pointer()
			l.Next()
			l.Prev()
			assert.Equal(t, before, l.Pointer())
			l.Next()
		}
	}
}

func TestSelectableList_SelectToggles(t *testing.T) {
	l := NewSelectableList("a", "b", "c")

	l.Select()
	idx, ok := l.Selected()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.True(t, l.CurrentIsSelected())

	l.Next()
	assert.False(t, l.CurrentIsSelected())
	item, ok := l.SelectedItem()
	assert.True(t, ok)
	assert.Equal(t, "a", item)

	// Selecting another element moves the selection
	l.Select()
	item, _ = l.SelectedItem()
	assert.Equal(t, "b", item)

	// Selecting the selected element clears it
	l.Select()
	_, ok = l.SelectedItem()
	assert.False(t, ok)
	assert.False(t, l.CurrentIsSelected())
}
