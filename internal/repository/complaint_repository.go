package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

const complaintColumns = `id, title, description, category, urgency, department, location, contact_phone, contact_email,
       priority_score, priority_band, status, submitter_id, source_kind, attachment_ref, confidence, summary,
       classifier_backend, duplicate_count, estimated_resolution, vector_ref, created_at, updated_at`

var complaintSortColumns = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"priority_score": "priority_score",
	"status":         "status",
	"category":       "category",
}

// ComplaintRepository persists complaints with their status history and notes.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository constructs the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts the complaint together with its initial status event.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) (err error) {
	if len(complaint.StatusHistory) != 1 {
		return fmt.Errorf("create complaint: want exactly one initial event, got %d", len(complaint.StatusHistory))
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complaint transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertComplaint = `INSERT INTO complaints (` + complaintColumns + `)
	VALUES (:id, :title, :description, :category, :urgency, :department, :location, :contact_phone, :contact_email,
	        :priority_score, :priority_band, :status, :submitter_id, :source_kind, :attachment_ref, :confidence, :summary,
	        :classifier_backend, :duplicate_count, :estimated_resolution, :vector_ref, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertComplaint, complaint); err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	event := complaint.StatusHistory[0]
	event.ComplaintID = complaint.ID
	if err = insertEvent(ctx, tx, &event); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit complaint: %w", err)
	}
	return nil
}

// GetByID loads a complaint with its full history and notes from a single
// repeatable-read snapshot.
func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (_ *models.Complaint, err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin complaint read: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	var complaint models.Complaint
	if err = tx.GetContext(ctx, &complaint, query, id); err != nil {
		return nil, err
	}

	const eventsQuery = `SELECT complaint_id, seq, kind, status, note, actor, created_at
	FROM complaint_status_events WHERE complaint_id = $1 ORDER BY seq`
	if err = tx.SelectContext(ctx, &complaint.StatusHistory, eventsQuery, id); err != nil {
		return nil, fmt.Errorf("load complaint history: %w", err)
	}
	const notesQuery = `SELECT complaint_id, seq, body, actor, created_at
	FROM complaint_notes WHERE complaint_id = $1 ORDER BY seq`
	if err = tx.SelectContext(ctx, &complaint.Notes, notesQuery, id); err != nil {
		return nil, fmt.Errorf("load complaint notes: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit complaint read: %w", err)
	}
	if complaint.StatusHistory == nil {
		complaint.StatusHistory = []models.StatusEvent{}
	}
	if complaint.Notes == nil {
		complaint.Notes = []models.Note{}
	}
	return &complaint, nil
}

// List returns complaint summaries (without history) matching the filter and the total count.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	args := make([]interface{}, 0, 8)
	conditions := make([]string, 0, 6)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.SubmitterID != "" {
		args = append(args, filter.SubmitterID)
		conditions = append(conditions, fmt.Sprintf("submitter_id = $%d", len(args)))
	}
	if filter.Band != "" {
		args = append(args, filter.Band)
		conditions = append(conditions, fmt.Sprintf("priority_band = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM complaints"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}

	sortColumn, ok := complaintSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}

	query := fmt.Sprintf("SELECT %s FROM complaints%s ORDER BY %s %s, id LIMIT %d OFFSET %d",
		complaintColumns, where, sortColumn, order, size, (page-1)*size)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, total, nil
}

// Refs returns the current title and status of the given complaints keyed by id.
// Ids with no row are absent from the result.
func (r *ComplaintRepository) Refs(ctx context.Context, ids []string) (map[string]models.ComplaintRef, error) {
	out := make(map[string]models.ComplaintRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const query = `SELECT id, title, status FROM complaints WHERE id = ANY($1)`
	var refs []models.ComplaintRef
	if err := r.db.SelectContext(ctx, &refs, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load complaint refs: %w", err)
	}
	for _, ref := range refs {
		out[ref.ID] = ref
	}
	return out, nil
}

// MutationParams describes a guarded write. The update only applies while the
// complaint is still in ExpectedStatus; otherwise sql.ErrNoRows is returned.
type MutationParams struct {
	ComplaintID    string
	ExpectedStatus models.ComplaintStatus
	UpdatedAt      time.Time
	Status         *models.ComplaintStatus
	Department     *string
	Event          *models.StatusEvent
	Note           *models.Note
}

// ApplyMutation updates the complaint row and appends the event and note atomically.
func (r *ComplaintRepository) ApplyMutation(ctx context.Context, params MutationParams) (err error) {
	setParts := []string{"updated_at = :updated_at"}
	if params.Status != nil {
		setParts = append(setParts, "status = :status")
	}
	if params.Department != nil {
		setParts = append(setParts, "department = :department")
	}
	query := fmt.Sprintf("UPDATE complaints SET %s WHERE id = :id AND status = :expected_status",
		strings.Join(setParts, ", "))

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mutation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              params.ComplaintID,
		"expected_status": params.ExpectedStatus,
		"updated_at":      params.UpdatedAt,
		"status":          params.Status,
		"department":      params.Department,
	})
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check complaint update rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}
	if params.Event != nil {
		params.Event.ComplaintID = params.ComplaintID
		if err = insertEvent(ctx, tx, params.Event); err != nil {
			return err
		}
	}
	if params.Note != nil {
		params.Note.ComplaintID = params.ComplaintID
		const insertNote = `INSERT INTO complaint_notes (complaint_id, seq, body, actor, created_at)
		VALUES (:complaint_id, :seq, :body, :actor, :created_at)`
		if _, err = tx.NamedExecContext(ctx, insertNote, params.Note); err != nil {
			return fmt.Errorf("insert complaint note: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit complaint mutation: %w", err)
	}
	return nil
}

// Delete removes the complaint, its vector and (by cascade) history and notes.
func (r *ComplaintRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM complaint_vectors WHERE complaint_id = $1`, id); err != nil {
		return fmt.Errorf("delete complaint vector: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete complaint: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check complaint delete rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit complaint delete: %w", err)
	}
	return nil
}

// Reprioritize stores a new score for a complaint that is still pending.
func (r *ComplaintRepository) Reprioritize(ctx context.Context, id string, score int, band models.PriorityBand, at time.Time) error {
	const query = `UPDATE complaints SET priority_score = $1, priority_band = $2, updated_at = GREATEST(updated_at, $3)
	WHERE id = $4 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, score, band, at, id)
	if err != nil {
		return fmt.Errorf("reprioritize complaint: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reprioritize rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AttachVector records the vector reference of an indexed complaint.
func (r *ComplaintRepository) AttachVector(ctx context.Context, id, vectorRef string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE complaints SET vector_ref = $1 WHERE id = $2`, vectorRef, id)
	if err != nil {
		return fmt.Errorf("attach complaint vector: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check attach vector rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListStalePending pages through pending complaints created before cutoff in
// id order, starting after afterID.
func (r *ComplaintRepository) ListStalePending(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]models.StaleComplaint, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT id, category, urgency, duplicate_count, priority_score, created_at
	FROM complaints WHERE status = 'pending' AND created_at < $1 AND id::text > $2 ORDER BY id::text LIMIT %d`, limit)
	var rows []models.StaleComplaint
	if err := r.db.SelectContext(ctx, &rows, query, cutoff, afterID); err != nil {
		return nil, fmt.Errorf("list stale complaints: %w", err)
	}
	return rows, nil
}

// ListIndexable pages through all complaints by id for index rebuilds.
func (r *ComplaintRepository) ListIndexable(ctx context.Context, afterID string, limit int) ([]models.IndexableComplaint, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT id, title, description FROM complaints WHERE id::text > $1 ORDER BY id::text LIMIT %d`, limit)
	var rows []models.IndexableComplaint
	if err := r.db.SelectContext(ctx, &rows, query, afterID); err != nil {
		return nil, fmt.Errorf("list indexable complaints: %w", err)
	}
	return rows, nil
}

func insertEvent(ctx context.Context, tx *sqlx.Tx, event *models.StatusEvent) error {
	const query = `INSERT INTO complaint_status_events (complaint_id, seq, kind, status, note, actor, created_at)
	VALUES (:complaint_id, :seq, :kind, :status, :note, :actor, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}
