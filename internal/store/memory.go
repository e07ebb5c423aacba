package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/models"
)

// Memory is an in-process Store. It backs DB_DRIVER=memory and the tests.
type Memory struct {
	mu            sync.Mutex
	retention     int
	students      map[string]models.Student
	interventions map[string]models.Intervention
	logs          map[string][]models.CheckInLog // newest last
	nextLogID     uint
}

func NewMemory(retention int) *Memory {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Memory{
		retention:     retention,
		students:      make(map[string]models.Student),
		interventions: make(map[string]models.Intervention),
		logs:          make(map[string][]models.CheckInLog),
	}
}

func (m *Memory) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.StoreUnavailable("store.GetStudent", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, apperr.NotFound("store.GetStudent", "student not found")
	}
	return &s, nil
}

func (m *Memory) ListStudents(ctx context.Context, status models.Status) ([]models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.StoreUnavailable("store.ListStudents", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *Memory) CreateStudent(ctx context.Context, s *models.Student) error {
	if err := ctx.Err(); err != nil {
		return apperr.StoreUnavailable("store.CreateStudent", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.ID]; ok {
		return apperr.New("store.CreateStudent", apperr.ErrConflict, "student already exists")
	}
	m.students[s.ID] = *s
	return nil
}

func (m *Memory) PendingIntervention(ctx context.Context, studentID string) (*models.Intervention, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.StoreUnavailable("store.PendingIntervention", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingLocked(studentID, nil), nil
}

func (m *Memory) pendingLocked(studentID string, staged map[string]models.Intervention) *models.Intervention {
	var found *models.Intervention
	consider := func(i models.Intervention) {
		if i.StudentID != studentID || i.Status != models.InterventionPending {
			return
		}
		if found == nil || i.CreatedAt.After(found.CreatedAt) {
			cp := i
			found = &cp
		}
	}
	for id, i := range m.interventions {
		if s, ok := staged[id]; ok {
			i = s
		}
		consider(i)
	}
	for id, i := range staged {
		if _, ok := m.interventions[id]; !ok {
			consider(i)
		}
	}
	return found
}

func (m *Memory) RecentCheckIns(ctx context.Context, studentID string, limit int) ([]models.CheckInLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.StoreUnavailable("store.RecentCheckIns", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := m.logs[studentID]
	out := make([]models.CheckInLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, logs[i])
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, studentID string, fn func(tx Tx, current *models.Student) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.StoreUnavailable("store.Update", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *models.Student
	if s, ok := m.students[studentID]; ok {
		current = &s
	}
	tx := &memoryTx{m: m, studentID: studentID, interventions: make(map[string]models.Intervention)}
	if err := fn(tx, current); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperr.StoreUnavailable("store.Update", err)
	}
	tx.commit()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memoryTx struct {
	m             *Memory
	studentID     string
	student       *models.Student
	interventions map[string]models.Intervention
	logs          []models.CheckInLog
}

func (t *memoryTx) PendingIntervention() (*models.Intervention, error) {
	return t.m.pendingLocked(t.studentID, t.interventions), nil
}

func (t *memoryTx) CreateStudent(s *models.Student) error {
	if _, ok := t.m.students[s.ID]; ok {
		return apperr.New("store.CreateStudent", apperr.ErrConflict, "student already exists")
	}
	cp := *s
	t.student = &cp
	return nil
}

func (t *memoryTx) SaveStudent(s *models.Student) error {
	cp := *s
	t.student = &cp
	return nil
}

func (t *memoryTx) CreateIntervention(i *models.Intervention) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if _, ok := t.m.interventions[i.ID]; ok {
		return apperr.New("store.CreateIntervention", apperr.ErrConflict, "intervention already exists")
	}
	t.interventions[i.ID] = *i
	return nil
}

func (t *memoryTx) SaveIntervention(i *models.Intervention) error {
	t.interventions[i.ID] = *i
	return nil
}

func (t *memoryTx) AppendCheckIn(l *models.CheckInLog) error {
	t.logs = append(t.logs, *l)
	return nil
}

func (t *memoryTx) commit() {
	m := t.m
	if t.student != nil {
		m.students[t.student.ID] = *t.student
	}
	for id, i := range t.interventions {
		m.interventions[id] = i
	}
	for _, l := range t.logs {
		m.nextLogID++
		l.ID = m.nextLogID
		logs := append(m.logs[l.StudentID], l)
		if len(logs) > m.retention {
			logs = append([]models.CheckInLog(nil), logs[len(logs)-m.retention:]...)
		}
		m.logs[l.StudentID] = logs
	}
}
