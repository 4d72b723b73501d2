package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"watchtrail/config"
	"watchtrail/core/auth"
	"watchtrail/model"
)

// fakeProgressRepo implements repository.ProgressRepository in memory
// with the same upsert-by-key contract as the GORM implementation.
type fakeProgressRepo struct {
	mu      sync.Mutex
	records map[string]map[string]model.ProgressRecord // userID -> itemKey -> record
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]map[string]model.ProgressRecord)}
}

func (f *fakeProgressRepo) UpsertItems(userID string, items []model.ProgressEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[userID] == nil {
		f.records[userID] = make(map[string]model.ProgressRecord)
	}
	stored := 0
	for _, entry := range items {
		if entry.Title == "" {
			continue
		}
		rec := model.RecordFromEntry(userID, entry, time.Now().UnixMilli())
		f.records[userID][rec.ItemKey] = rec
		stored++
	}
	return stored, nil
}

func (f *fakeProgressRepo) GetUserRecords(userID string) (map[string]model.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]model.ProgressRecord, len(f.records[userID]))
	for k, v := range f.records[userID] {
		out[k] = v
	}
	return out, nil
}

// fakeUserRepo implements repository.UserRepository in memory.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeUserRepo) GetUserByUsername(username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByEmail(email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func newTestHandler(t *testing.T) (*APIHandler, *fakeProgressRepo) {
	t.Helper()
	auth.Configure("test-secret", time.Hour)
	progressRepo := newFakeProgressRepo()
	h := NewAPIHandler(newFakeUserRepo(), progressRepo, &config.Config{})
	return h, progressRepo
}

func syncRequest(t *testing.T, token string, items []model.ProgressEntry) *http.Request {
	t.Helper()
	body, err := json.Marshal(model.SyncRequest{Items: items})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestSyncRejectsMissingToken(t *testing.T) {
	h, repo := newTestHandler(t)
	handler := h.AuthMiddleware(h.SyncHandler)

	rec := httptest.NewRecorder()
	handler(rec, syncRequest(t, "", []model.ProgressEntry{{Title: "A", Platform: "X"}}))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	records, _ := repo.GetUserRecords("user-1")
	if len(records) != 0 {
		t.Fatalf("records stored without auth: %v", records)
	}
}

func TestSyncRejectsOpaqueToken(t *testing.T) {
	h, _ := newTestHandler(t)
	handler := h.AuthMiddleware(h.SyncHandler)

	rec := httptest.NewRecorder()
	handler(rec, syncRequest(t, "mock-token-garbage", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSyncUpsertsUnderTokenUser(t *testing.T) {
	h, repo := newTestHandler(t)
	handler := h.AuthMiddleware(h.SyncHandler)

	token, err := auth.GenerateToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	items := []model.ProgressEntry{
		{Title: "Show A", Platform: "X", Time: 120, LastUpdated: 1},
		{Title: "Show B", Platform: "Y", Time: 30, LastUpdated: 2},
		{Platform: "X", Time: 5}, // no title, skipped
	}

	rec := httptest.NewRecorder()
	handler(rec, syncRequest(t, token, items))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	var resp model.SyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.OK || resp.Stored != 2 {
		t.Fatalf("response = %+v, want ok with 2 stored", resp)
	}

	records, _ := repo.GetUserRecords("user-1")
	if len(records) != 2 {
		t.Fatalf("stored %d records, want 2", len(records))
	}
	if rec := records["X:Show A"]; rec.Time != 120 || rec.LastSynced == 0 {
		t.Fatalf("record X:Show A = %+v", rec)
	}
}

func TestSyncRedeliveryOverwrites(t *testing.T) {
	h, repo := newTestHandler(t)
	handler := h.AuthMiddleware(h.SyncHandler)

	token, err := auth.GenerateToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	items := []model.ProgressEntry{{Title: "Show A", Platform: "X", Time: 120}}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler(rec, syncRequest(t, token, items))
		if rec.Code != http.StatusOK {
			t.Fatalf("flush %d status = %d", i, rec.Code)
		}
	}

	records, _ := repo.GetUserRecords("user-1")
	if len(records) != 1 {
		t.Fatalf("stored %d records after redelivery, want 1", len(records))
	}
}
