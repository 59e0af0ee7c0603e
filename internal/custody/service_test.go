package custody

import (
	"context"
	"errors"
	"testing"
)

type staticDirectory map[string][2]string

func (d staticDirectory) Lookup(ctx context.Context, userID string) (string, string, bool) {
	v, ok := d[userID]
	return v[0], v[1], ok
}

func seedAsset(t *testing.T, svc *InMemory) Asset {
	t.Helper()
	asset, err := svc.CreateAsset(context.Background(), &Asset{
		Name:          "Gold bar 1kg",
		OriginalValue: 6_500_000,
		CurrentValue:  6_500_000,
		DemurrageRate: 25,
	})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	if asset.Status != AssetStored {
		t.Fatalf("new asset must start stored, got %s", asset.Status)
	}
	return asset
}

func TestCreateRequestForcesAssetPending(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()
	asset := seedAsset(t, svc)

	req, err := svc.CreateRequest(ctx, "user-1", asset.ID, []string{"doc-1", "doc-2"})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.Status != RequestPending {
		t.Fatalf("unexpected request status: %s", req.Status)
	}
	if len(req.DocumentIDs) != 2 {
		t.Fatalf("unexpected document ids: %v", req.DocumentIDs)
	}

	got, err := svc.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if got.Status != AssetPending {
		t.Fatalf("asset must be pending after request creation, got %s", got.Status)
	}
}

func TestCreateRequestWithDanglingAssetSucceeds(t *testing.T) {
	svc := NewInMemory()

	// Asset and document ids are opaque references at creation time.
	req, err := svc.CreateRequest(context.Background(), "user-1", "no-such-asset", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.Status != RequestPending {
		t.Fatalf("unexpected status: %s", req.Status)
	}
}

func TestTransitionCascades(t *testing.T) {
	tests := []struct {
		name        string
		newStatus   string
		wantAsset   string
		wantCascade bool
	}{
		{name: "approved releases asset", newStatus: RequestApproved, wantAsset: AssetReleased, wantCascade: true},
		{name: "rejected restores asset", newStatus: RequestRejected, wantAsset: AssetStored, wantCascade: true},
		{name: "unknown status leaves asset", newStatus: "escalated", wantCascade: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewInMemory()
			ctx := context.Background()
			asset := seedAsset(t, svc)

			req, err := svc.CreateRequest(ctx, "user-1", asset.ID, nil)
			if err != nil {
				t.Fatalf("create request: %v", err)
			}

			updated, err := svc.TransitionRequest(ctx, req.ID, tc.newStatus, "admin-1")
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if updated.Status != tc.newStatus {
				t.Fatalf("unexpected request status: %s", updated.Status)
			}
			if updated.ProcessedAt == nil {
				t.Fatal("processed_at must be set")
			}
			if updated.ProcessedBy != "admin-1" {
				t.Fatalf("unexpected processor: %s", updated.ProcessedBy)
			}

			got, err := svc.GetAsset(ctx, asset.ID)
			if err != nil {
				t.Fatalf("get asset: %v", err)
			}
			if tc.wantCascade && got.Status != tc.wantAsset {
				t.Fatalf("expected asset %s, got %s", tc.wantAsset, got.Status)
			}
			if !tc.wantCascade && got.Status != AssetPending {
				t.Fatalf("asset must stay pending, got %s", got.Status)
			}
		})
	}
}

func TestReprocessingFlipsAssetAgain(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()
	asset := seedAsset(t, svc)

	req, err := svc.CreateRequest(ctx, "user-1", asset.ID, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	if _, err := svc.TransitionRequest(ctx, req.ID, RequestApproved, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ := svc.GetAsset(ctx, asset.ID)
	if got.Status != AssetReleased {
		t.Fatalf("expected released, got %s", got.Status)
	}

	// Without the guard the same request can be processed again and the
	// asset flips back.
	if _, err := svc.TransitionRequest(ctx, req.ID, RequestRejected, "admin-2"); err != nil {
		t.Fatalf("re-process: %v", err)
	}
	got, _ = svc.GetAsset(ctx, asset.ID)
	if got.Status != AssetStored {
		t.Fatalf("expected stored after re-process, got %s", got.Status)
	}
}

func TestPendingGuardRejectsReprocessing(t *testing.T) {
	svc := NewInMemory(WithPendingGuard(true))
	ctx := context.Background()
	asset := seedAsset(t, svc)

	req, err := svc.CreateRequest(ctx, "user-1", asset.ID, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := svc.TransitionRequest(ctx, req.ID, RequestApproved, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.TransitionRequest(ctx, req.ID, RequestRejected, "admin-2"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestTransitionUnknownRequest(t *testing.T) {
	svc := NewInMemory()
	if _, err := svc.TransitionRequest(context.Background(), "missing", RequestApproved, "admin-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRequestsResolvesUserAndAsset(t *testing.T) {
	dir := staticDirectory{"user-1": {"Alice", "alice@example.com"}}
	svc := NewInMemory(WithUserDirectory(dir))
	ctx := context.Background()
	asset := seedAsset(t, svc)

	if _, err := svc.CreateRequest(ctx, "user-1", asset.ID, []string{"doc-1"}); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := svc.CreateRequest(ctx, "ghost", "no-such-asset", nil); err != nil {
		t.Fatalf("create dangling request: %v", err)
	}

	details, err := svc.ListRequests(ctx)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(details))
	}

	first := details[0]
	if first.UserName != "Alice" || first.UserEmail != "alice@example.com" {
		t.Fatalf("unresolved user fields: %+v", first)
	}
	if first.Asset == nil || first.Asset.ID != asset.ID {
		t.Fatalf("unresolved asset: %+v", first.Asset)
	}

	// Dangling references resolve to zero values, not errors.
	second := details[1]
	if second.UserName != "" || second.Asset != nil {
		t.Fatalf("dangling request must not resolve: %+v", second)
	}
}

func TestDocumentsOwnedByUploader(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()

	if _, err := svc.CreateDocument(ctx, "user-1", "passport", "documents/2026/08/28/a"); err != nil {
		t.Fatalf("create document: %v", err)
	}
	if _, err := svc.CreateDocument(ctx, "user-2", "deed", "documents/2026/08/28/b"); err != nil {
		t.Fatalf("create document: %v", err)
	}

	docs, err := svc.ListDocumentsByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Type != "passport" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
}
