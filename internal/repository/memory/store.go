// Package memory provides an in-process repository.Store for tests and local
// tooling. Transactions are serialized and roll back by restoring a snapshot;
// calls outside a transaction wait for any running one to finish.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"fieldcase/internal/models"
	"fieldcase/internal/repository"
)

type collabKey struct {
	projectID uint
	userID    uint
}

type data struct {
	users         map[uint]models.User
	projects      map[uint]models.Project
	collaborators map[collabKey]models.ProjectCollaborator
	entries       map[uint]models.Entry
	invitations   map[uint]models.ProjectInvitation
	nextID        uint
}

// clone copies every table. Rows are stored by value and never mutated in
// place, so a shallow map copy is a full snapshot.
func (d *data) clone() *data {
	return &data{
		users:         maps.Clone(d.users),
		projects:      maps.Clone(d.projects),
		collaborators: maps.Clone(d.collaborators),
		entries:       maps.Clone(d.entries),
		invitations:   maps.Clone(d.invitations),
		nextID:        d.nextID,
	}
}

type state struct {
	mu   sync.Mutex
	txMu sync.Mutex
	d    *data
	now  func() time.Time
}

// Store is an in-memory repository.Store.
type Store struct {
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		d: &data{
			users:         map[uint]models.User{},
			projects:      map[uint]models.Project{},
			collaborators: map[collabKey]models.ProjectCollaborator{},
			entries:       map[uint]models.Entry{},
			invitations:   map[uint]models.ProjectInvitation{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}}
}

// SetClock overrides the timestamp source for created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.now = now
}

func (s *Store) Users() repository.UserRepository                 { return &userRepo{st: s.conn()} }
func (s *Store) Projects() repository.ProjectRepository           { return &projectRepo{st: s.conn()} }
func (s *Store) Collaborators() repository.CollaboratorRepository { return &collabRepo{st: s.conn()} }
func (s *Store) Entries() repository.EntryRepository              { return &entryRepo{st: s.conn()} }
func (s *Store) Invitations() repository.InvitationRepository     { return &invitationRepo{st: s.conn()} }

// WithTx holds the store-wide transaction lock for the duration of fn and
// restores the pre-transaction snapshot when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.Lock()
	snapshot := s.st.d.clone()
	s.st.mu.Unlock()

	if err := fn(&Store{st: s.st, inTx: true}); err != nil {
		s.st.mu.Lock()
		s.st.d = snapshot
		s.st.mu.Unlock()
		return err
	}
	return nil
}

// conn is the state as seen by one repository handle.
type conn struct {
	*state
	inTx bool
}

func (s *Store) conn() conn {
	return conn{state: s.st, inTx: s.inTx}
}

// lock acquires the data mutex and returns the live data set. Outside a
// transaction it also takes txMu, so a rollback cannot discard the write.
func (c conn) lock() *data {
	if !c.inTx {
		c.txMu.Lock()
	}
	c.mu.Lock()
	return c.d
}

func (c conn) unlock() {
	c.mu.Unlock()
	if !c.inTx {
		c.txMu.Unlock()
	}
}

func (d *data) allocID() uint {
	d.nextID++
	return d.nextID
}
