package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"custodia.org/internal/custody"
	"custodia.org/internal/ids"
)

var _ custody.Service = (*Store)(nil)

func (s *Store) CreateAsset(ctx context.Context, asset *custody.Asset) (custody.Asset, error) {
	if asset.ID == "" {
		asset.ID = ids.New()
	}
	if asset.Status == "" {
		asset.Status = custody.AssetStored
	}
	now := time.Now().UTC()
	if asset.DepositDate.IsZero() {
		asset.DepositDate = now
	}
	asset.LastUpdated = now

	_, err := s.db.ExecContext(ctx, `
		insert into assets(id, name, description, original_value, current_value,
			demurrage_rate, deposit_date, status, last_updated)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, asset.ID, asset.Name, asset.Description, asset.OriginalValue, asset.CurrentValue,
		asset.DemurrageRate, asset.DepositDate, asset.Status, asset.LastUpdated)
	if err != nil {
		return custody.Asset{}, err
	}
	return *asset, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]custody.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, original_value, current_value,
			demurrage_rate, deposit_date, status, last_updated
		from assets order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []custody.Asset
	for rows.Next() {
		var a custody.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.OriginalValue, &a.CurrentValue,
			&a.DemurrageRate, &a.DepositDate, &a.Status, &a.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAsset(ctx context.Context, id string) (custody.Asset, error) {
	var a custody.Asset
	err := s.db.QueryRowContext(ctx, `
		select id, name, description, original_value, current_value,
			demurrage_rate, deposit_date, status, last_updated
		from assets where id=$1
	`, id).Scan(&a.ID, &a.Name, &a.Description, &a.OriginalValue, &a.CurrentValue,
		&a.DemurrageRate, &a.DepositDate, &a.Status, &a.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return custody.Asset{}, custody.ErrNotFound
	}
	if err != nil {
		return custody.Asset{}, err
	}
	return a, nil
}

func (s *Store) CreateDocument(ctx context.Context, ownerID, docType, fileKey string) (custody.Document, error) {
	doc := custody.Document{
		ID:         ids.New(),
		OwnerID:    ownerID,
		Type:       strings.TrimSpace(docType),
		FileKey:    fileKey,
		UploadedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		insert into documents(id, owner_id, doc_type, file_key, uploaded_at)
		values ($1,$2,$3,$4,$5)
	`, doc.ID, doc.OwnerID, doc.Type, doc.FileKey, doc.UploadedAt)
	if err != nil {
		return custody.Document{}, err
	}
	return doc, nil
}

func (s *Store) ListDocumentsByOwner(ctx context.Context, ownerID string) ([]custody.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, owner_id, doc_type, file_key, uploaded_at
		from documents where owner_id=$1 order by id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []custody.Document
	for rows.Next() {
		var d custody.Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Type, &d.FileKey, &d.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateRequest inserts the request first and then forces the referenced
// asset into pending. The asset update matches zero rows when the reference
// dangles; a failed asset write leaves the request in place (no rollback),
// matching the source behavior.
func (s *Store) CreateRequest(ctx context.Context, userID, assetID string, documentIDs []string) (custody.ReleaseRequest, error) {
	req := custody.ReleaseRequest{
		ID:          ids.New(),
		UserID:      userID,
		AssetID:     assetID,
		DocumentIDs: append([]string(nil), documentIDs...),
		Status:      custody.RequestPending,
		CreatedAt:   time.Now().UTC(),
	}
	docIDs, err := json.Marshal(req.DocumentIDs)
	if err != nil {
		return custody.ReleaseRequest{}, err
	}

	if _, err := s.db.ExecContext(ctx, `
		insert into requests(id, user_id, asset_id, document_ids, status, created_at)
		values ($1,$2,$3,$4,$5,$6)
	`, req.ID, req.UserID, req.AssetID, docIDs, req.Status, req.CreatedAt); err != nil {
		return custody.ReleaseRequest{}, err
	}

	if _, err := s.db.ExecContext(ctx, `
		update assets set status=$2, last_updated=now() where id=$1
	`, assetID, custody.AssetPending); err != nil {
		return custody.ReleaseRequest{}, err
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context) ([]custody.RequestDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.user_id, r.asset_id, r.document_ids, r.status, r.created_at,
			r.processed_at, coalesce(r.processed_by,''),
			coalesce(u.name,''), coalesce(u.email,''),
			a.id, a.name, a.description, a.original_value, a.current_value,
			a.demurrage_rate, a.deposit_date, a.status, a.last_updated
		from requests r
		left join users u on u.id = r.user_id
		left join assets a on a.id = r.asset_id
		order by r.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []custody.RequestDetail
	for rows.Next() {
		var (
			d           custody.RequestDetail
			docIDs      []byte
			processedAt sql.NullTime

			assetID    sql.NullString
			assetName  sql.NullString
			assetDesc  sql.NullString
			origValue  sql.NullInt64
			currValue  sql.NullInt64
			demurrage  sql.NullInt64
			deposit    sql.NullTime
			assetState sql.NullString
			updated    sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.AssetID, &docIDs, &d.Status, &d.CreatedAt,
			&processedAt, &d.ProcessedBy,
			&d.UserName, &d.UserEmail,
			&assetID, &assetName, &assetDesc, &origValue, &currValue,
			&demurrage, &deposit, &assetState, &updated); err != nil {
			return nil, err
		}
		if len(docIDs) > 0 {
			if err := json.Unmarshal(docIDs, &d.DocumentIDs); err != nil {
				return nil, err
			}
		}
		if processedAt.Valid {
			t := processedAt.Time
			d.ProcessedAt = &t
		}
		if assetID.Valid {
			d.Asset = &custody.Asset{
				ID:            assetID.String,
				Name:          assetName.String,
				Description:   assetDesc.String,
				OriginalValue: origValue.Int64,
				CurrentValue:  currValue.Int64,
				DemurrageRate: demurrage.Int64,
				DepositDate:   deposit.Time,
				Status:        assetState.String,
				LastUpdated:   updated.Time,
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TransitionRequest records the outcome and cascades it onto the asset in a
// single transaction: approved releases the asset, rejected restores it to
// stored, anything else is written without an asset mutation.
func (s *Store) TransitionRequest(ctx context.Context, requestID, newStatus, actorID string) (custody.ReleaseRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return custody.ReleaseRequest{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		req    custody.ReleaseRequest
		docIDs []byte
	)
	err = tx.QueryRowContext(ctx, `
		select id, user_id, asset_id, document_ids, status, created_at
		from requests where id=$1 for update
	`, requestID).Scan(&req.ID, &req.UserID, &req.AssetID, &docIDs, &req.Status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return custody.ReleaseRequest{}, custody.ErrNotFound
	}
	if err != nil {
		return custody.ReleaseRequest{}, err
	}
	if len(docIDs) > 0 {
		if err := json.Unmarshal(docIDs, &req.DocumentIDs); err != nil {
			return custody.ReleaseRequest{}, err
		}
	}
	if s.pendingGuard && req.Status != custody.RequestPending {
		return custody.ReleaseRequest{}, custody.ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		update requests set status=$2, processed_at=$3, processed_by=$4 where id=$1
	`, requestID, newStatus, now, actorID); err != nil {
		return custody.ReleaseRequest{}, err
	}

	if assetStatus, ok := custody.CascadeStatus(newStatus); ok {
		if _, err := tx.ExecContext(ctx, `
			update assets set status=$2, last_updated=now() where id=$1
		`, req.AssetID, assetStatus); err != nil {
			return custody.ReleaseRequest{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return custody.ReleaseRequest{}, err
	}

	req.Status = newStatus
	req.ProcessedAt = &now
	req.ProcessedBy = actorID
	return req, nil
}
