package custody

import (
	"context"
	"strings"
	"sync"
	"time"

	"custodia.org/internal/ids"
)

// UserDirectory resolves requester display fields for admin listings.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (name, email string, ok bool)
}

// Service defines the custody workflow operations.
type Service interface {
	CreateAsset(ctx context.Context, asset *Asset) (Asset, error)
	ListAssets(ctx context.Context) ([]Asset, error)
	GetAsset(ctx context.Context, id string) (Asset, error)

	CreateDocument(ctx context.Context, ownerID, docType, fileKey string) (Document, error)
	ListDocumentsByOwner(ctx context.Context, ownerID string) ([]Document, error)

	CreateRequest(ctx context.Context, userID, assetID string, documentIDs []string) (ReleaseRequest, error)
	ListRequests(ctx context.Context) ([]RequestDetail, error)
	TransitionRequest(ctx context.Context, requestID, newStatus, actorID string) (ReleaseRequest, error)
}

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu           sync.RWMutex
	assets       map[string]*Asset
	assetOrder   []string
	documents    map[string]*Document
	docOrder     []string
	requests     map[string]*ReleaseRequest
	requestOrder []string

	users        UserDirectory
	pendingGuard bool
	now          func() time.Time
}

var _ Service = (*InMemory)(nil)

// Option configures the in-memory engine.
type Option func(*InMemory)

// WithUserDirectory wires requester display-field resolution for listings.
func WithUserDirectory(dir UserDirectory) Option {
	return func(s *InMemory) { s.users = dir }
}

// WithPendingGuard rejects transitions of requests that already left the
// pending state. The observed source behavior permits re-processing, so the
// guard is off unless explicitly enabled.
func WithPendingGuard(enabled bool) Option {
	return func(s *InMemory) { s.pendingGuard = enabled }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *InMemory) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewInMemory creates a fresh custody engine.
func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		assets:    make(map[string]*Asset),
		documents: make(map[string]*Document),
		requests:  make(map[string]*ReleaseRequest),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) CreateAsset(ctx context.Context, asset *Asset) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if asset.ID == "" {
		asset.ID = ids.New()
	}
	if asset.Status == "" {
		asset.Status = AssetStored
	}
	now := s.now().UTC()
	if asset.DepositDate.IsZero() {
		asset.DepositDate = now
	}
	asset.LastUpdated = now
	cp := *asset
	s.assets[asset.ID] = &cp
	s.assetOrder = append(s.assetOrder, asset.ID)
	return cp, nil
}

func (s *InMemory) ListAssets(ctx context.Context) ([]Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Asset, 0, len(s.assetOrder))
	for _, id := range s.assetOrder {
		out = append(out, *s.assets[id])
	}
	return out, nil
}

func (s *InMemory) GetAsset(ctx context.Context, id string) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return *asset, nil
}

func (s *InMemory) CreateDocument(ctx context.Context, ownerID, docType, fileKey string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := Document{
		ID:         ids.New(),
		OwnerID:    ownerID,
		Type:       strings.TrimSpace(docType),
		FileKey:    fileKey,
		UploadedAt: s.now().UTC(),
	}
	s.documents[doc.ID] = &doc
	s.docOrder = append(s.docOrder, doc.ID)
	return doc, nil
}

func (s *InMemory) ListDocumentsByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, id := range s.docOrder {
		if s.documents[id].OwnerID == ownerID {
			out = append(out, *s.documents[id])
		}
	}
	return out, nil
}

// CreateRequest persists the request first and then forces the referenced
// asset into pending. The asset id and document ids are opaque references:
// a missing asset makes the status write a silent no-op, and there is no
// compensating rollback of the request.
func (s *InMemory) CreateRequest(ctx context.Context, userID, assetID string, documentIDs []string) (ReleaseRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := ReleaseRequest{
		ID:          ids.New(),
		UserID:      userID,
		AssetID:     assetID,
		DocumentIDs: append([]string(nil), documentIDs...),
		Status:      RequestPending,
		CreatedAt:   s.now().UTC(),
	}
	s.requests[req.ID] = &req
	s.requestOrder = append(s.requestOrder, req.ID)

	s.setAssetStatus(assetID, AssetPending)
	return req, nil
}

func (s *InMemory) ListRequests(ctx context.Context) ([]RequestDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RequestDetail, 0, len(s.requestOrder))
	for _, id := range s.requestOrder {
		detail := RequestDetail{ReleaseRequest: *s.requests[id]}
		if asset, ok := s.assets[detail.AssetID]; ok {
			cp := *asset
			detail.Asset = &cp
		}
		if s.users != nil {
			if name, email, ok := s.users.Lookup(ctx, detail.UserID); ok {
				detail.UserName = name
				detail.UserEmail = email
			}
		}
		out = append(out, detail)
	}
	return out, nil
}

// TransitionRequest records the outcome and cascades it onto the asset:
// approved releases the asset, rejected returns it to stored, any other
// status value is written without touching the asset.
func (s *InMemory) TransitionRequest(ctx context.Context, requestID, newStatus, actorID string) (ReleaseRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return ReleaseRequest{}, ErrNotFound
	}
	if s.pendingGuard && req.Status != RequestPending {
		return ReleaseRequest{}, ErrAlreadyProcessed
	}

	now := s.now().UTC()
	req.Status = newStatus
	req.ProcessedAt = &now
	req.ProcessedBy = actorID

	if assetStatus, ok := CascadeStatus(newStatus); ok {
		s.setAssetStatus(req.AssetID, assetStatus)
	}
	return *req, nil
}

// setAssetStatus is a no-op when the asset does not exist, matching an
// update-by-id against a document store.
func (s *InMemory) setAssetStatus(assetID, status string) {
	asset, ok := s.assets[assetID]
	if !ok {
		return
	}
	asset.Status = status
	asset.LastUpdated = s.now().UTC()
}
