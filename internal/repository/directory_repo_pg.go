package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PGDirectoryRepository struct {
	db DB
}

func NewDirectoryRepository(db DB) *PGDirectoryRepository {
	return &PGDirectoryRepository{db: db}
}

func (r *PGDirectoryRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Doctor, error) {
	var d domain.Doctor
	err := r.db.QueryRow(ctx, `SELECT id, clinic_id, name, specialization, is_active FROM doctors WHERE id=$1`, id).
		Scan(&d.ID, &d.ClinicID, &d.Name, &d.Specialization, &d.Active)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *PGDirectoryRepository) GetPatient(ctx context.Context, id uuid.UUID) (*domain.Patient, error) {
	var p domain.Patient
	err := r.db.QueryRow(ctx, `SELECT id, user_id, name, phone FROM patients WHERE id=$1`, id).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Phone)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PGDirectoryRepository) GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*domain.Patient, error) {
	var p domain.Patient
	err := r.db.QueryRow(ctx, `SELECT id, user_id, name, phone FROM patients WHERE user_id=$1`, userID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Phone)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PGDirectoryRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `SELECT id, email, role FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.Role)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *PGDirectoryRepository) ActiveSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, error) {
	rows, err := r.db.Query(ctx, `SELECT id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, is_active
		FROM doctor_schedules
		WHERE doctor_id=$1 AND day_of_week=$2 AND is_active
		ORDER BY start_time, end_time, id`, doctorID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.DoctorSchedule
	for rows.Next() {
		var s domain.DoctorSchedule
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.SlotDurationMinutes, &s.Active); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

var _ DirectoryRepository = (*PGDirectoryRepository)(nil)
