package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// User (organization or contractor account)
type User struct {
	ID             int            `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	CompanyName    string         `db:"company_name" json:"companyName"`
	Phone          string         `db:"phone" json:"phone"`
	Certifications pq.StringArray `db:"certifications" json:"certifications"`
	Status         string         `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

func (s *Storage) CreateUser(ctx context.Context, u *User) error {
	query := `
        INSERT INTO users (email, password_hash, company_name, phone, certifications, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.CompanyName, u.Phone, u.Certifications, u.Status).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	query := `SELECT * FROM users WHERE lower(email)=lower($1)`
	err := s.db.GetContext(ctx, u, query, email)
	return u, err
}

func (s *Storage) GetUser(ctx context.Context, id int) (*User, error) {
	u := &User{}
	query := `SELECT * FROM users WHERE id=$1`
	err := s.db.GetContext(ctx, u, query, id)
	return u, err
}

func (s *Storage) UpdateUser(ctx context.Context, u *User) error {
	query := `
        UPDATE users
        SET company_name=$1, phone=$2, certifications=$3, status=$4, updated_at=NOW()
        WHERE id=$5`
	_, err := s.db.ExecContext(ctx, query,
		u.CompanyName, u.Phone, u.Certifications, u.Status, u.ID)
	return err
}

// Rfp (posted project)
type Rfp struct {
	ID                 int        `db:"id" json:"id"`
	OrganizationID     int        `db:"organization_id" json:"organizationId"`
	Title              string     `db:"title" json:"title" validate:"required,max=200"`
	Description        string     `db:"description" json:"description" validate:"required"`
	WalkthroughDate    time.Time  `db:"walkthrough_date" json:"walkthroughDate"`
	RfiDueDate         time.Time  `db:"rfi_due_date" json:"rfiDueDate"`
	DeadlineDate       time.Time  `db:"deadline_date" json:"deadlineDate"`
	BudgetMin          int64      `db:"budget_min" json:"budgetMin"`
	CertificationGoals string     `db:"certification_goals" json:"certificationGoals"`
	Address            string     `db:"address" json:"address"`
	Status             string     `db:"status" json:"status"`
	Featured           bool       `db:"featured" json:"featured"`
	FeaturedAt         *time.Time `db:"featured_at" json:"featuredAt,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}

func (s *Storage) CreateRfp(ctx context.Context, r *Rfp) error {
	query := `
        INSERT INTO rfps
            (organization_id, title, description, walkthrough_date, rfi_due_date,
             deadline_date, budget_min, certification_goals, address, status)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		r.OrganizationID, r.Title, r.Description, r.WalkthroughDate, r.RfiDueDate,
		r.DeadlineDate, r.BudgetMin, r.CertificationGoals, r.Address, r.Status).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (s *Storage) GetRfp(ctx context.Context, id int) (*Rfp, error) {
	r := &Rfp{}
	query := `SELECT * FROM rfps WHERE id=$1`
	err := s.db.GetContext(ctx, r, query, id)
	return r, err
}

// GetRfps returns open listings, featured ones first.
func (s *Storage) GetRfps(ctx context.Context, limit, offset int) ([]Rfp, error) {
	query := `
        SELECT * FROM rfps
        WHERE status = 'open'
        ORDER BY featured DESC, created_at DESC
        LIMIT $1 OFFSET $2`
	rfps := []Rfp{}
	err := s.db.SelectContext(ctx, &rfps, query, limit, offset)
	return rfps, err
}

func (s *Storage) GetUserRfps(ctx context.Context, organizationID, limit, offset int) ([]Rfp, error) {
	query := `
        SELECT * FROM rfps
        WHERE organization_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	rfps := []Rfp{}
	err := s.db.SelectContext(ctx, &rfps, query, organizationID, limit, offset)
	return rfps, err
}

func (s *Storage) UpdateRfp(ctx context.Context, r *Rfp) error {
	query := `
        UPDATE rfps
        SET title=$1, description=$2, walkthrough_date=$3, rfi_due_date=$4,
            deadline_date=$5, budget_min=$6, certification_goals=$7, address=$8,
            status=$9, updated_at=NOW()
        WHERE id=$10`
	_, err := s.db.ExecContext(ctx, query,
		r.Title, r.Description, r.WalkthroughDate, r.RfiDueDate,
		r.DeadlineDate, r.BudgetMin, r.CertificationGoals, r.Address,
		r.Status, r.ID)
	return err
}

func (s *Storage) DeleteRfp(ctx context.Context, id int) error {
	query := `DELETE FROM rfps WHERE id=$1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *Storage) SetRfpFeatured(ctx context.Context, id int) error {
	query := `UPDATE rfps SET featured=TRUE, featured_at=NOW(), updated_at=NOW() WHERE id=$1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
