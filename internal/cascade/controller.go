// Package cascade drives the dependent room → student dropdowns of the
// filtered occurrence report.
package cascade

import (
	"context"
	"log"
	"sync"

	"relatorio-ocorrencias/internal/models"
)

// Fetcher is the part of the backend client the cascade needs.
type Fetcher interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	Students(ctx context.Context, roomID string) ([]models.Student, error)
}

// Controller owns the room and student selectors of one visitor. Fetches run
// outside the lock; a response is applied only if no newer request was
// issued for the same selector in the meantime.
type Controller struct {
	fetcher Fetcher

	mu           sync.Mutex
	rooms        Select
	students     Select
	roomGuard    Guard
	studentGuard Guard
}

func New(fetcher Fetcher) *Controller {
	return &Controller{
		fetcher:  fetcher,
		rooms:    placeholderSelect(LabelLoading, StatusLoading),
		students: placeholderSelect(LabelPickRoomFirst, StatusPlaceholder),
	}
}

// Init loads the room list. Failures end up in the room selector as an
// error placeholder; nothing is returned to the caller.
func (c *Controller) Init(ctx context.Context) {
	c.mu.Lock()
	tok := c.roomGuard.Issue()
	c.rooms = placeholderSelect(LabelLoading, StatusLoading)
	c.mu.Unlock()

	rooms, err := c.fetcher.Rooms(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.roomGuard.Valid(tok) {
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to load rooms: %v", err)
		c.rooms = placeholderSelect(LabelLoadError, StatusError)
		return
	}

	options := make([]Option, 0, len(rooms))
	for _, r := range rooms {
		options = append(options, Option{Value: r.ID.String(), Label: r.Name})
	}
	c.rooms = Select{Placeholder: LabelPick, Options: options, Status: StatusReady}
	c.students = placeholderSelect(LabelPickRoomFirst, StatusPlaceholder)
}

// ChangeRoom handles a room-change event. The student selector switches to
// the loading placeholder before the fetch starts, and is replaced wholesale
// (prior selection dropped) when the response is still current. It reports
// whether this call's outcome was applied.
func (c *Controller) ChangeRoom(ctx context.Context, roomID string) bool {
	c.mu.Lock()
	c.rooms.Selected = roomID
	tok := c.studentGuard.Issue()
	if roomID == "" {
		c.students = placeholderSelect(LabelPickRoomFirst, StatusPlaceholder)
		c.mu.Unlock()
		return true
	}
	c.students = placeholderSelect(LabelLoading, StatusLoading)
	c.mu.Unlock()

	students, err := c.fetcher.Students(ctx, roomID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.studentGuard.Valid(tok) {
		log.Printf("WARNING: Discarding stale student list for room %s", roomID)
		return false
	}
	if err != nil {
		log.Printf("ERROR: Failed to load students for room %s: %v", roomID, err)
		c.students = placeholderSelect(LabelLoadError, StatusError)
		return true
	}

	options := make([]Option, 0, len(students))
	for _, s := range students {
		options = append(options, Option{Value: s.ID.String(), Label: s.Name})
	}
	c.students = Select{Placeholder: LabelPick, Options: options, Status: StatusReady}
	return true
}

// SelectStudent records the student picked in the student selector. Values
// that are not listed for the current room are refused.
func (c *Controller) SelectStudent(studentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if studentID != "" && !c.students.Has(studentID) {
		return false
	}
	c.students.Selected = studentID
	return true
}

// SelectedStudent returns the selected student id and name.
func (c *Controller) SelectedStudent() (id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.students.Selected, c.students.Label(c.students.Selected)
}

// Snapshot returns copies of both selectors for rendering.
func (c *Controller) Snapshot() (rooms, students Select) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms.clone(), c.students.clone()
}
