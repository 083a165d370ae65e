package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// fakeDriver backs the *sql.DB the services open transactions against. All
// store traffic goes through the in-memory fakes below, so the driver only
// has to hand out connections whose transactions commit and roll back
// without error.
type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) { return fakeConn{}, nil }

type fakeConn struct{}

func (fakeConn) Prepare(query string) (driver.Stmt, error) { return nil, sql.ErrNoRows }
func (fakeConn) Close() error                              { return nil }
func (fakeConn) Begin() (driver.Tx, error)                 { return fakeTx{}, nil }

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

func init() {
	sql.Register("servicefake", fakeDriver{})
}

func newFakeDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("servicefake", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// captureBroadcaster records published events for assertion.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *captureBroadcaster) Publish(ctx context.Context, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *captureBroadcaster) published() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.Event, len(b.events))
	copy(out, b.events)
	return out
}

// panicBroadcaster misbehaves on every publish, standing in for a broken
// fanout layer.
type panicBroadcaster struct{}

func (panicBroadcaster) Publish(ctx context.Context, event realtime.Event) {
	panic("broadcast blew up")
}

// fakeBoardStore is an in-memory BoardStore.
type fakeBoardStore struct {
	mu     sync.Mutex
	boards map[uuid.UUID]*domain.Board
}

func newFakeBoardStore() *fakeBoardStore {
	return &fakeBoardStore{boards: make(map[uuid.UUID]*domain.Board)}
}

func (f *fakeBoardStore) Create(ctx context.Context, board *domain.Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards[board.ID] = board
	return nil
}

func (f *fakeBoardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	board, ok := f.boards[id]
	if !ok {
		return nil, store.ErrBoardNotFound
	}
	copied := *board
	return &copied, nil
}

func (f *fakeBoardStore) Update(ctx context.Context, board *domain.Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[board.ID]; !ok {
		return store.ErrBoardNotFound
	}
	copied := *board
	f.boards[board.ID] = &copied
	return nil
}

func (f *fakeBoardStore) WithTx(tx *sql.Tx) store.BoardStore { return f }

// fakeColumnStore is an in-memory ColumnStore with version-checked placements.
type fakeColumnStore struct {
	mu       sync.Mutex
	columns  map[uuid.UUID]*domain.Column
	applied  [][]store.ColumnPlacement
	applyErr error
}

func newFakeColumnStore() *fakeColumnStore {
	return &fakeColumnStore{columns: make(map[uuid.UUID]*domain.Column)}
}

func (f *fakeColumnStore) Create(ctx context.Context, column *domain.Column) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *column
	f.columns[column.ID] = &copied
	return nil
}

func (f *fakeColumnStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	column, ok := f.columns[id]
	if !ok {
		return nil, store.ErrColumnNotFound
	}
	copied := *column
	return &copied, nil
}

func (f *fakeColumnStore) ListActiveByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Column
	for _, c := range f.columns {
		if c.BoardID == boardID && !c.Archived {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeColumnStore) Update(ctx context.Context, column *domain.Column) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.columns[column.ID]; !ok {
		return store.ErrColumnNotFound
	}
	copied := *column
	f.columns[column.ID] = &copied
	return nil
}

func (f *fakeColumnStore) ApplyPlacements(ctx context.Context, placements []store.ColumnPlacement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	for _, p := range placements {
		column, ok := f.columns[p.ColumnID]
		if !ok || column.Version != p.ExpectedVersion {
			return store.ErrConflict
		}
	}
	for _, p := range placements {
		column := f.columns[p.ColumnID]
		column.Position = p.Position
		column.Version++
	}
	f.applied = append(f.applied, placements)
	return nil
}

func (f *fakeColumnStore) BumpVersion(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	column, ok := f.columns[id]
	if !ok {
		return store.ErrColumnNotFound
	}
	if column.Version != expectedVersion {
		return fmt.Errorf("%w: column %s changed since it was read", store.ErrConflict, id)
	}
	column.Version++
	return nil
}

func (f *fakeColumnStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.columns[id]; !ok {
		return store.ErrColumnNotFound
	}
	delete(f.columns, id)
	return nil
}

func (f *fakeColumnStore) WithTx(tx *sql.Tx) store.ColumnStore { return f }

// fakeTaskStore is an in-memory TaskStore with version-checked placements.
type fakeTaskStore struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]*domain.Task
	applied  [][]store.TaskPlacement
	applyErr error

	// afterList, when set, runs after a ListActiveByColumn snapshot is
	// taken, letting a test squeeze a competing writer in between the read
	// and the commit.
	afterList func()
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (f *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) ListActiveByColumn(ctx context.Context, columnID uuid.UUID) ([]*domain.Task, error) {
	f.mu.Lock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.ColumnID == columnID && !t.Archived {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	hook := f.afterList
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) ApplyPlacements(ctx context.Context, placements []store.TaskPlacement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	for _, p := range placements {
		task, ok := f.tasks[p.TaskID]
		if !ok || task.Version != p.ExpectedVersion {
			return store.ErrConflict
		}
	}
	for _, p := range placements {
		task := f.tasks[p.TaskID]
		task.ColumnID = p.ColumnID
		task.Position = p.Position
		task.Version++
	}
	f.applied = append(f.applied, placements)
	return nil
}

func (f *fakeTaskStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return f }

// positions returns the column's active task positions keyed by title, for
// compact assertions on the outcome of a placement batch.
func (f *fakeTaskStore) positions(t *testing.T, columnID uuid.UUID) map[string]int {
	t.Helper()
	tasks, err := f.ListActiveByColumn(context.Background(), columnID)
	require.NoError(t, err)
	out := make(map[string]int, len(tasks))
	for _, task := range tasks {
		out[task.Title] = task.Position
	}
	return out
}

// fakeMembershipStore is an in-memory MembershipStore.
type fakeMembershipStore struct {
	mu          sync.Mutex
	memberships map[uuid.UUID]map[uuid.UUID]*domain.Membership
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{memberships: make(map[uuid.UUID]map[uuid.UUID]*domain.Membership)}
}

func (f *fakeMembershipStore) grant(boardID, userID uuid.UUID, role domain.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberships[boardID] == nil {
		f.memberships[boardID] = make(map[uuid.UUID]*domain.Membership)
	}
	membership, _ := domain.NewMembership(boardID, userID, role)
	f.memberships[boardID][userID] = membership
}

func (f *fakeMembershipStore) Create(ctx context.Context, membership *domain.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberships[membership.BoardID] == nil {
		f.memberships[membership.BoardID] = make(map[uuid.UUID]*domain.Membership)
	}
	if _, ok := f.memberships[membership.BoardID][membership.UserID]; ok {
		return store.ErrMembershipExists
	}
	copied := *membership
	f.memberships[membership.BoardID][membership.UserID] = &copied
	return nil
}

func (f *fakeMembershipStore) Get(ctx context.Context, boardID, userID uuid.UUID) (*domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	membership, ok := f.memberships[boardID][userID]
	if !ok {
		return nil, store.ErrMembershipNotFound
	}
	copied := *membership
	return &copied, nil
}

func (f *fakeMembershipStore) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Membership
	for _, m := range f.memberships[boardID] {
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

func (f *fakeMembershipStore) UpdateRole(ctx context.Context, boardID, userID uuid.UUID, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	membership, ok := f.memberships[boardID][userID]
	if !ok {
		return store.ErrMembershipNotFound
	}
	membership.Role = role
	return nil
}

func (f *fakeMembershipStore) Delete(ctx context.Context, boardID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memberships[boardID][userID]; !ok {
		return store.ErrMembershipNotFound
	}
	delete(f.memberships[boardID], userID)
	return nil
}

func (f *fakeMembershipStore) WithTx(tx *sql.Tx) store.MembershipStore { return f }

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*store.User)}
}

func (f *fakeUserStore) add(id uuid.UUID, handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &store.User{ID: id, Handle: handle, DisplayName: handle}
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) GetByHandle(ctx context.Context, handle string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Handle == handle {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// fakeCommentStore is an in-memory CommentStore.
type fakeCommentStore struct {
	mu       sync.Mutex
	comments map[uuid.UUID]*domain.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[uuid.UUID]*domain.Comment)}
}

func (f *fakeCommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *comment
	f.comments[comment.ID] = &copied
	return nil
}

func (f *fakeCommentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[id]
	if !ok {
		return nil, store.ErrCommentNotFound
	}
	copied := *comment
	return &copied, nil
}

func (f *fakeCommentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Comment
	for _, c := range f.comments {
		if c.TaskID == taskID {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeCommentStore) Update(ctx context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[comment.ID]; !ok {
		return store.ErrCommentNotFound
	}
	copied := *comment
	f.comments[comment.ID] = &copied
	return nil
}

func (f *fakeCommentStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return store.ErrCommentNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeCommentStore) WithTx(tx *sql.Tx) store.CommentStore { return f }
