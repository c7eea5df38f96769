package catalog

// SelectableList is a list with a cursor and an optional selected index.
// The zero value is an empty list.
//
// The cursor is always a valid index while the list is non-empty and 0 when
// it is empty. Next and Prev wrap around.
type SelectableList[T any] struct {
	items       []T
	pointer     int
	selected    int
	hasSelected bool
}

func NewSelectableList[T any](items ...T) *SelectableList[T] {
	return &SelectableList[T]{items: items}
}

func (l *SelectableList[T]) Len() int {
	return len(l.items)
}

// Items returns a copy of the elements.
func (l *SelectableList[T]) Items() []T {
	return append([]T(nil), l.items...)
}

func (l *SelectableList[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(l.items) {
		return zero, false
	}
	return l.items[i], true
}

func (l *SelectableList[T]) Pointer() int {
	return l.pointer
}

func (l *SelectableList[T]) Current() (T, bool) {
	return l.At(l.pointer)
}

func (l *SelectableList[T]) Next() (T, bool) {
	if len(l.items) > 0 {
		l.pointer = (l.pointer + 1) % len(l.items)
	}
	return l.Current()
}

func (l *SelectableList[T]) Prev() (T, bool) {
	if len(l.items) > 0 {
		l.pointer = (l.pointer - 1 + len(l.items)) % len(l.items)
	}
	return l.Current()
}

// Select toggles the selection on the element under the cursor.
func (l *SelectableList[T]) Select() {
	if len(l.items) == 0 {
		return
	}
	if l.hasSelected && l.selected == l.pointer {
		l.hasSelected = false
		return
	}
	l.selected = l.pointer
	l.hasSelected = true
}

// Selected returns the selected index.
func (l *SelectableList[T]) Selected() (int, bool) {
	return l.selected, l.hasSelected
}

func (l *SelectableList[T]) SelectedItem() (T, bool) {
	if !l.hasSelected {
		var zero T
		return zero, false
	}
	return l.At(l.selected)
}

func (l *SelectableList[T]) CurrentIsSelected() bool {
	return l.hasSelected && l.selected == l.pointer
}
