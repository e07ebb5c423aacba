package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/models"
)

const DefaultTimeout = 3 * time.Second

// Gorm is the Store backed by a relational database through GORM.
type Gorm struct {
	DB        *gorm.DB
	Timeout   time.Duration
	Retention int
}

func NewGorm(db *gorm.DB, timeout time.Duration, retention int) *Gorm {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Gorm{DB: db, Timeout: timeout, Retention: retention}
}

func (g *Gorm) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	return g.DB.WithContext(ctx), cancel
}

func (g *Gorm) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	db, cancel := g.session(ctx)
	defer cancel()
	var s models.Student
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("store.GetStudent", "student not found")
		}
		return nil, translate("store.GetStudent", err)
	}
	return &s, nil
}

func (g *Gorm) ListStudents(ctx context.Context, status models.Status) ([]models.Student, error) {
	db, cancel := g.session(ctx)
	defer cancel()
	q := db.Model(&models.Student{}).Order("updated_at ASC").Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Student
	if err := q.Find(&out).Error; err != nil {
		return nil, translate("store.ListStudents", err)
	}
	return out, nil
}

func (g *Gorm) CreateStudent(ctx context.Context, s *models.Student) error {
	db, cancel := g.session(ctx)
	defer cancel()
	err := db.Transaction(func(tx *gorm.DB) error {
		return (&gormTx{tx: tx, studentID: s.ID, retention: g.Retention}).CreateStudent(s)
	})
	return translate("store.CreateStudent", err)
}

func (g *Gorm) PendingIntervention(ctx context.Context, studentID string) (*models.Intervention, error) {
	db, cancel := g.session(ctx)
	defer cancel()
	i, err := pendingIntervention(db, studentID)
	if err != nil {
		return nil, translate("store.PendingIntervention", err)
	}
	return i, nil
}

func (g *Gorm) RecentCheckIns(ctx context.Context, studentID string, limit int) ([]models.CheckInLog, error) {
	db, cancel := g.session(ctx)
	defer cancel()
	q := db.Where("student_id = ?", studentID).Order("logged_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.CheckInLog
	if err := q.Find(&out).Error; err != nil {
		return nil, translate("store.RecentCheckIns", err)
	}
	return out, nil
}

func (g *Gorm) Update(ctx context.Context, studentID string, fn func(tx Tx, current *models.Student) error) error {
	db, cancel := g.session(ctx)
	defer cancel()
	err := db.Transaction(func(tx *gorm.DB) error {
		var st models.Student
		var current *models.Student
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", studentID).First(&st).Error
		switch {
		case err == nil:
			current = &st
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return fn(&gormTx{tx: tx, studentID: studentID, retention: g.Retention}, current)
	})
	return translate("store.Update", err)
}

func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return apperr.StoreUnavailable("store.Ping", err)
	}
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperr.StoreUnavailable("store.Ping", err)
	}
	return nil
}

type gormTx struct {
	tx        *gorm.DB
	studentID string
	retention int
}

func (t *gormTx) PendingIntervention() (*models.Intervention, error) {
	return pendingIntervention(t.tx, t.studentID)
}

func (t *gormTx) CreateStudent(s *models.Student) error {
	var count int64
	if err := t.tx.Model(&models.Student{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.New("store.CreateStudent", apperr.ErrConflict, "student already exists")
	}
	return t.tx.Create(s).Error
}

func (t *gormTx) SaveStudent(s *models.Student) error {
	return t.tx.Save(s).Error
}

func (t *gormTx) CreateIntervention(i *models.Intervention) error {
	return t.tx.Create(i).Error
}

func (t *gormTx) SaveIntervention(i *models.Intervention) error {
	return t.tx.Save(i).Error
}

func (t *gormTx) AppendCheckIn(l *models.CheckInLog) error {
	if err := t.tx.Create(l).Error; err != nil {
		return err
	}
	keep := t.tx.Model(&models.CheckInLog{}).
		Select("id").
		Where("student_id = ?", l.StudentID).
		Order("logged_at DESC").Order("id DESC").
		Limit(t.retention)
	return t.tx.Where("student_id = ? AND id NOT IN (?)", l.StudentID, keep).Delete(&models.CheckInLog{}).Error
}

func pendingIntervention(db *gorm.DB, studentID string) (*models.Intervention, error) {
	var i models.Intervention
	err := db.Where("student_id = ? AND status = ?", studentID, models.InterventionPending).
		Order("created_at DESC").
		First(&i).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

// translate maps driver errors onto apperr kinds. Errors that already carry a
// kind pass through untouched.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(op, apperr.ErrNotFound, "record not found", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Wrap(op, apperr.ErrConflict, "record already exists", err)
	}
	return apperr.StoreUnavailable(op, err)
}
