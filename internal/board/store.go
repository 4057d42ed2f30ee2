package board

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roach88/cardflow/internal/ir"
)

// Op names the mutation that produced a Change.
type Op string

// Mutation ops.
const (
	OpCreateBoard     Op = "create_board"
	OpCreateColumn    Op = "create_column"
	OpDeleteColumn    Op = "delete_column"
	OpCreateLabel     Op = "create_label"
	OpDeleteLabel     Op = "delete_label"
	OpCreateCard      Op = "create_card"
	OpUpdateCard      Op = "update_card"
	OpMoveCard        Op = "move_card"
	OpAddCardLabel    Op = "add_card_label"
	OpRemoveCardLabel Op = "remove_card_label"
	OpAddSubtask      Op = "add_subtask"
	OpSetSubtask      Op = "set_subtask"
	OpArchiveCard     Op = "archive_card"
	OpDeleteCard      Op = "delete_card"
)

// Change describes one committed mutation.
// Seq increases by one for every committed mutation.
type Change struct {
	Seq     int64
	Op      Op
	BoardID string
	CardID  string
}

// Listener is invoked synchronously after each committed mutation.
type Listener func(Change)

type subscription struct {
	id int
	fn Listener
}

// Store is the in-memory entity store.
//
// Thread-safety: every method is atomic with respect to the store's own
// state, and listeners are invoked on the mutating goroutine outside the
// store lock. A store with an engine attached is single-writer: a write
// from a second goroutine can land in the middle of a cycle, where the
// engine cannot observe it. Hosts with several writers serialize them
// through engine.Engine.Exclusive.
type Store struct {
	mu       sync.Mutex
	boards   map[string]ir.Board
	columns  map[string]ir.Column
	cards    map[string]ir.Card
	archived map[string]ir.Card
	labels   []ir.Label

	seq       int64
	subs      []subscription
	nextSubID int

	ids IDGenerator
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the generator used when inputs omit an id.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithClock sets the wall clock used for card timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		boards:   make(map[string]ir.Board),
		columns:  make(map[string]ir.Column),
		cards:    make(map[string]ir.Card),
		archived: make(map[string]ir.Card),
		ids:      UUIDv7Generator{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromState creates a store seeded with a copy of st.
// The seeded state is checked against the board invariants; loading
// publishes no notifications.
func FromState(st ir.State, opts ...Option) (*Store, error) {
	s := New(opts...)
	for id, b := range st.Boards {
		b.ColumnIDs = slices.Clone(b.ColumnIDs)
		s.boards[id] = b
	}
	for id, c := range st.Columns {
		s.columns[id] = c.Clone()
	}
	for id, c := range st.Cards {
		s.cards[id] = c.Clone()
	}
	s.labels = slices.Clone(st.Labels)

	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe registers a listener and returns a function that removes it.
// Listeners are invoked in registration order.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	}
}

// Seq returns the sequence number of the last committed mutation.
func (s *Store) Seq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// commit stamps a change and returns the listeners to notify.
// Must be called with s.mu held.
func (s *Store) commit(op Op, boardID, cardID string) (Change, []Listener) {
	s.seq++
	ch := Change{Seq: s.seq, Op: op, BoardID: boardID, CardID: cardID}
	fns := make([]Listener, len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	return ch, fns
}

// publish invokes listeners. Must be called without s.mu held.
func publish(ch Change, fns []Listener) {
	for _, fn := range fns {
		fn(ch)
	}
}

// State returns a detached deep copy of the active board state.
// Archived cards are not included.
func (s *Store) State() ir.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := ir.State{
		Boards:  make(map[string]ir.Board, len(s.boards)),
		Columns: make(map[string]ir.Column, len(s.columns)),
		Cards:   make(map[string]ir.Card, len(s.cards)),
		Labels:  slices.Clone(s.labels),
	}
	for id, b := range s.boards {
		b.ColumnIDs = slices.Clone(b.ColumnIDs)
		st.Boards[id] = b
	}
	for id, c := range s.columns {
		st.Columns[id] = c.Clone()
	}
	for id, c := range s.cards {
		st.Cards[id] = c.Clone()
	}
	return st
}

// Board returns the board with the given id.
func (s *Store) Board(id string) (ir.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if ok {
		b.ColumnIDs = slices.Clone(b.ColumnIDs)
	}
	return b, ok
}

// Column returns the column with the given id.
func (s *Store) Column(id string) (ir.Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.columns[id]
	return c.Clone(), ok
}

// Card returns the active card with the given id.
func (s *Store) Card(id string) (ir.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	return c.Clone(), ok
}

// ArchivedCard returns the archived card with the given id.
func (s *Store) ArchivedCard(id string) (ir.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.archived[id]
	return c.Clone(), ok
}

// Label resolves a global label by id.
func (s *Store) Label(id string) (ir.Label, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labelLocked(id)
}

func (s *Store) labelLocked(id string) (ir.Label, bool) {
	for _, l := range s.labels {
		if l.ID == id {
			return l, true
		}
	}
	return ir.Label{}, false
}

func (s *Store) newID(id string) string {
	if id != "" {
		return id
	}
	return s.ids.Generate()
}

// CreateBoard adds a board. An empty ID is generated.
func (s *Store) CreateBoard(b ir.Board) (ir.Board, error) {
	s.mu.Lock()
	b.ID = s.newID(b.ID)
	if _, exists := s.boards[b.ID]; exists {
		s.mu.Unlock()
		return ir.Board{}, fmt.Errorf("create board %q: %w", b.ID, ErrDuplicateID)
	}
	b.ColumnIDs = nil
	s.boards[b.ID] = b
	ch, fns := s.commit(OpCreateBoard, b.ID, "")
	s.mu.Unlock()

	publish(ch, fns)
	return b, nil
}

// CreateColumn appends a column to its board. An empty ID is generated.
func (s *Store) CreateColumn(c ir.Column) (ir.Column, error) {
	s.mu.Lock()
	c.ID = s.newID(c.ID)
	b, ok := s.boards[c.BoardID]
	if !ok {
		s.mu.Unlock()
		return ir.Column{}, fmt.Errorf("create column: board %q: %w", c.BoardID, ErrNotFound)
	}
	if _, exists := s.columns[c.ID]; exists {
		s.mu.Unlock()
		return ir.Column{}, fmt.Errorf("create column %q: %w", c.ID, ErrDuplicateID)
	}
	c.CardIDs = nil
	s.columns[c.ID] = c
	b.ColumnIDs = append(slices.Clone(b.ColumnIDs), c.ID)
	s.boards[b.ID] = b
	ch, fns := s.commit(OpCreateColumn, b.ID, "")
	s.mu.Unlock()

	publish(ch, fns)
	return c, nil
}

// DeleteColumn removes an empty column from its board.
func (s *Store) DeleteColumn(id string) error {
	s.mu.Lock()
	c, ok := s.columns[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete column %q: %w", id, ErrNotFound)
	}
	if len(c.CardIDs) > 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete column %q: %w", id, ErrColumnNotEmpty)
	}
	delete(s.columns, id)
	if b, ok := s.boards[c.BoardID]; ok {
		b.ColumnIDs = slices.DeleteFunc(slices.Clone(b.ColumnIDs), func(cid string) bool { return cid == id })
		s.boards[b.ID] = b
	}
	ch, fns := s.commit(OpDeleteColumn, c.BoardID, "")
	s.mu.Unlock()

	publish(ch, fns)
	return nil
}

// CreateLabel adds a global label. An empty ID is generated.
func (s *Store) CreateLabel(l ir.Label) (ir.Label, error) {
	s.mu.Lock()
	l.ID = s.newID(l.ID)
	if _, exists := s.labelLocked(l.ID); exists {
		s.mu.Unlock()
		return ir.Label{}, fmt.Errorf("create label %q: %w", l.ID, ErrDuplicateID)
	}
	s.labels = append(s.labels, l)
	ch, fns := s.commit(OpCreateLabel, "", "")
	s.mu.Unlock()

	publish(ch, fns)
	return l, nil
}

// DeleteLabel removes a global label definition. Cards keep their
// denormalized copies; automations referencing the label become no-ops.
func (s *Store) DeleteLabel(id string) error {
	s.mu.Lock()
	if _, ok := s.labelLocked(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete label %q: %w", id, ErrNotFound)
	}
	s.labels = slices.DeleteFunc(s.labels, func(l ir.Label) bool { return l.ID == id })
	ch, fns := s.commit(OpDeleteLabel, "", "")
	s.mu.Unlock()

	publish(ch, fns)
	return nil
}

// CardInput describes a new card.
type CardInput struct {
	ID          string
	ColumnID    string
	Title       string
	Description string
	Priority    ir.Priority // empty means none
	DueDate     *time.Time
	LabelIDs    []string
	Subtasks    []ir.Subtask
	Completed   bool
}

// CreateCard creates a card at the end of its column.
// The card's board is the column's board. Label ids resolve against the
// global label list; unknown ids are an error.
func (s *Store) CreateCard(in CardInput) (ir.Card, error) {
	s.mu.Lock()
	card, err := s.buildCardLocked(in)
	if err != nil {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("create card: %w", err)
	}
	col := s.columns[card.ColumnID]
	col.CardIDs = append(slices.Clone(col.CardIDs), card.ID)
	s.columns[col.ID] = col
	s.cards[card.ID] = card
	ch, fns := s.commit(OpCreateCard, card.BoardID, card.ID)
	s.mu.Unlock()

	publish(ch, fns)
	return card.Clone(), nil
}

func (s *Store) buildCardLocked(in CardInput) (ir.Card, error) {
	col, ok := s.columns[in.ColumnID]
	if !ok {
		return ir.Card{}, fmt.Errorf("column %q: %w", in.ColumnID, ErrNotFound)
	}
	id := s.newID(in.ID)
	if _, exists := s.cards[id]; exists {
		return ir.Card{}, fmt.Errorf("card %q: %w", id, ErrDuplicateID)
	}
	if _, exists := s.archived[id]; exists {
		return ir.Card{}, fmt.Errorf("card %q: %w", id, ErrDuplicateID)
	}

	priority := in.Priority
	if priority == "" {
		priority = ir.PriorityNone
	}
	if !priority.Valid() {
		return ir.Card{}, fmt.Errorf("priority %q: %w", priority, ErrInvalidPriority)
	}

	labels := make([]ir.CardLabel, 0, len(in.LabelIDs))
	for _, lid := range in.LabelIDs {
		l, ok := s.labelLocked(lid)
		if !ok {
			return ir.Card{}, fmt.Errorf("label %q: %w", lid, ErrNotFound)
		}
		if !slices.ContainsFunc(labels, func(cl ir.CardLabel) bool { return cl.ID == lid }) {
			labels = append(labels, ir.CardLabel(l))
		}
	}

	now := s.now()
	card := ir.Card{
		ID:          id,
		ColumnID:    col.ID,
		BoardID:     col.BoardID,
		Title:       in.Title,
		Description: in.Description,
		Labels:      labels,
		Priority:    priority,
		Subtasks:    slices.Clone(in.Subtasks),
		Completed:   in.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.DueDate != nil {
		d := *in.DueDate
		card.DueDate = &d
	}
	return card, nil
}

// CardPatch describes a partial card update. Nil fields are left
// unchanged. ClearDueDate takes precedence over DueDate.
type CardPatch struct {
	Title        *string
	Description  *string
	Priority     *ir.Priority
	DueDate      *time.Time
	ClearDueDate bool
	Completed    *bool
}

// UpdateCard applies a patch to an active card.
func (s *Store) UpdateCard(id string, p CardPatch) (ir.Card, error) {
	s.mu.Lock()
	card, ok := s.cards[id]
	if !ok {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("update card %q: %w", id, ErrNotFound)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("update card %q: priority %q: %w", id, *p.Priority, ErrInvalidPriority)
	}

	card = card.Clone()
	if p.Title != nil {
		card.Title = *p.Title
	}
	if p.Description != nil {
		card.Description = *p.Description
	}
	if p.Priority != nil {
		card.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		card.DueDate = nil
	case p.DueDate != nil:
		d := *p.DueDate
		card.DueDate = &d
	}
	if p.Completed != nil {
		card.Completed = *p.Completed
	}
	card.UpdatedAt = s.now()
	s.cards[id] = card
	ch, fns := s.commit(OpUpdateCard, card.BoardID, id)
	s.mu.Unlock()

	publish(ch, fns)
	return card.Clone(), nil
}

// MoveCard removes the card from its column and appends it to the end of
// columnID. Moving a card to its current column is a no-op and publishes
// nothing. Moving across boards is rejected.
func (s *Store) MoveCard(id, columnID string) (ir.Card, error) {
	s.mu.Lock()
	card, ok := s.cards[id]
	if !ok {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("move card %q: %w", id, ErrNotFound)
	}
	target, ok := s.columns[columnID]
	if !ok {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("move card %q: column %q: %w", id, columnID, ErrNotFound)
	}
	if card.ColumnID == columnID {
		s.mu.Unlock()
		return card.Clone(), nil
	}
	if target.BoardID != card.BoardID {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("move card %q to %q: %w", id, columnID, ErrCrossBoard)
	}

	if src, ok := s.columns[card.ColumnID]; ok {
		src.CardIDs = slices.DeleteFunc(slices.Clone(src.CardIDs), func(cid string) bool { return cid == id })
		s.columns[src.ID] = src
	}
	target.CardIDs = append(slices.Clone(target.CardIDs), id)
	s.columns[target.ID] = target

	card = card.Clone()
	card.ColumnID = columnID
	card.UpdatedAt = s.now()
	s.cards[id] = card
	ch, fns := s.commit(OpMoveCard, card.BoardID, id)
	s.mu.Unlock()

	publish(ch, fns)
	return card.Clone(), nil
}

// AddCardLabel attaches a global label to a card, copying its current name
// and color. Attaching a label the card already carries is a no-op.
func (s *Store) AddCardLabel(cardID, labelID string) (ir.Card, error) {
	s.mu.Lock()
	card, ok := s.cards[cardID]
	if !ok {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("add label to card %q: %w", cardID, ErrNotFound)
	}
	l, ok := s.labelLocked(labelID)
	if !ok {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("add label to card %q: label %q: %w", cardID, labelID, ErrNotFound)
	}
	if card.HasLabel(labelID) {
		s.mu.Unlock()
		return card.Clone(), nil
	}

	card = card.Clone()
	card.Labels = append(card.Labels, ir.CardLabel(l))
	card.UpdatedAt = s.now()
	s.cards[cardID] = card
	ch, fns := s.commit(OpAddCardLabel, card.BoardID, cardID)
	s.mu.Unlock()

	publish(ch, fns)
	return card.Clone(), nil
}

// RemoveCardLabel detaches every label entry with labelID from a card.
// Removing a label the card does not carry is a no-op.
func (s *Store) RemoveCardLabel(cardID, labelID string) (ir.Card, error) {
	s.mu.Lock()
	card, ok := s.cards[cardID]
	if !ok {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("remove label from card %q: %w", cardID, ErrNotFound)
	}
	if !card.HasLabel(labelID) {
		s.mu.Unlock()
		return card.Clone(), nil
	}

	card = card.Clone()
	card.Labels = slices.DeleteFunc(card.Labels, func(cl ir.CardLabel) bool { return cl.ID == labelID })
	card.UpdatedAt = s.now()
	s.cards[cardID] = card
	ch, fns := s.commit(OpRemoveCardLabel, card.BoardID, cardID)
	s.mu.Unlock()

	publish(ch, fns)
	return card.Clone(), nil
}

// AddSubtask appends a subtask to a card. An empty ID is generated.
func (s *Store) AddSubtask(cardID string, st ir.Subtask) (ir.Subtask, error) {
	s.mu.Lock()
	card, ok := s.cards[cardID]
	if !ok {
		s.mu.Unlock()
		return ir.Subtask{}, fmt.Errorf("add subtask to card %q: %w", cardID, ErrNotFound)
	}
	st.ID = s.newID(st.ID)
	if slices.ContainsFunc(card.Subtasks, func(x ir.Subtask) bool { return x.ID == st.ID }) {
		s.mu.Unlock()
		return ir.Subtask{}, fmt.Errorf("add subtask %q: %w", st.ID, ErrDuplicateID)
	}

	card = card.Clone()
	card.Subtasks = append(card.Subtasks, st)
	card.UpdatedAt = s.now()
	s.cards[cardID] = card
	ch, fns := s.commit(OpAddSubtask, card.BoardID, cardID)
	s.mu.Unlock()

	publish(ch, fns)
	return st, nil
}

// SetSubtaskCompleted sets a subtask's completion flag.
func (s *Store) SetSubtaskCompleted(cardID, subtaskID string, completed bool) (ir.Card, error) {
	s.mu.Lock()
	card, ok := s.cards[cardID]
	if !ok {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("set subtask on card %q: %w", cardID, ErrNotFound)
	}
	idx := slices.IndexFunc(card.Subtasks, func(x ir.Subtask) bool { return x.ID == subtaskID })
	if idx < 0 {
		s.mu.Unlock()
		return ir.Card{}, fmt.Errorf("set subtask %q on card %q: %w", subtaskID, cardID, ErrNotFound)
	}

	card = card.Clone()
	card.Subtasks[idx].Completed = completed
	card.UpdatedAt = s.now()
	s.cards[cardID] = card
	ch, fns := s.commit(OpSetSubtask, card.BoardID, cardID)
	s.mu.Unlock()

	publish(ch, fns)
	return card.Clone(), nil
}

// ArchiveCard removes a card from its column and from the active set.
// The archived copy stays readable through ArchivedCard.
func (s *Store) ArchiveCard(id string) error {
	return s.removeCard(id, OpArchiveCard, true)
}

// DeleteCard removes a card permanently.
func (s *Store) DeleteCard(id string) error {
	return s.removeCard(id, OpDeleteCard, false)
}

func (s *Store) removeCard(id string, op Op, keep bool) error {
	s.mu.Lock()
	card, ok := s.cards[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s %q: %w", op, id, ErrNotFound)
	}
	if col, ok := s.columns[card.ColumnID]; ok {
		col.CardIDs = slices.DeleteFunc(slices.Clone(col.CardIDs), func(cid string) bool { return cid == id })
		s.columns[col.ID] = col
	}
	delete(s.cards, id)
	if keep {
		card.UpdatedAt = s.now()
		s.archived[id] = card
	}
	ch, fns := s.commit(op, card.BoardID, id)
	s.mu.Unlock()

	publish(ch, fns)
	return nil
}
