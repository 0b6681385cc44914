package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/services"
)

func Test_clampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query      string
		page, size int
	}{
		{"", 1, 20},
		{"page=3&page_size=10", 3, 10},
		{"page=0&page_size=0", 1, 20},
		{"page=2&page_size=-5", 2, 20},
		{"page=-2&page_size=1000", 1, 100},
		{"page=x&page_size=y", 1, 20},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/contacts?"+tc.query, nil)
		pg := clampPagination(c)
		if pg.Number != tc.page || pg.Size != tc.size {
			t.Fatalf("%q -> (%d,%d); want (%d,%d)", tc.query, pg.Number, pg.Size, tc.page, tc.size)
		}
	}
}

func TestCreateContact_CreatedExistingAndBadInput(t *testing.T) {
	store := newTestStore(t)
	r := testRouter(New(store, &stubCampaign{}, nil))

	w := doJSON(t, r, http.MethodPost, "/contacts", `{"email":" Jane@Example.com ","first_name":"Jane","company_name":"Acme"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("first add -> %d %s", w.Code, w.Body.String())
	}
	created := decode[domain.Contact](t, w)
	if created.Email != "jane@example.com" || created.Status != domain.StatusPending || created.ID == "" {
		t.Fatalf("unexpected contact: %+v", created)
	}

	w = doJSON(t, r, http.MethodPost, "/contacts", `{"email":"JANE@example.com","first_name":"Other"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate add -> %d", w.Code)
	}
	if got := decode[domain.Contact](t, w); got.ID != created.ID || got.FirstName != "Jane" {
		t.Fatalf("duplicate should return the existing record: %+v", got)
	}

	w = doJSON(t, r, http.MethodPost, "/contacts", `{"first_name":"NoEmail"}`)
	if w.Code != http.StatusBadRequest || decode[ErrorResponse](t, w).Message != "email is required" {
		t.Fatalf("missing email -> %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/contacts", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON -> %d", w.Code)
	}
}

type failingContacts struct{ ContactService }

func (failingContacts) Add(context.Context, domain.NewContactInput) (*domain.Contact, bool, error) {
	return nil, false, errors.New("disk full")
}

func (failingContacts) ListPage(context.Context, domain.Status, int, int) ([]domain.Contact, int64, error) {
	return nil, 0, errors.New("db down")
}

func (failingContacts) Get(context.Context, string) (*domain.Contact, error) {
	return nil, errors.New("db down")
}

func TestContactHandlers_InternalErrors(t *testing.T) {
	r := testRouter(New(failingContacts{}, &stubCampaign{}, nil))

	w := doJSON(t, r, http.MethodPost, "/contacts", `{"email":"a@b.com"}`)
	if w.Code != http.StatusInternalServerError || decode[ErrorResponse](t, w).Code != ErrCodeCreateFailed {
		t.Fatalf("add error -> %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/contacts", "")
	if w.Code != http.StatusInternalServerError || decode[ErrorResponse](t, w).Code != ErrCodeListFailed {
		t.Fatalf("list error -> %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/contacts/"+uuid.NewString(), "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("get error -> %d", w.Code)
	}
}

func TestImportContacts(t *testing.T) {
	store := newTestStore(t)
	r := testRouter(New(store, &stubCampaign{}, nil))

	w := doJSON(t, r, http.MethodPost, "/contacts/bulk",
		`[{"email":"a@x.com"},{"email":"b@x.com"},{"email":"A@X.com"},{"first_name":"nobody"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk -> %d %s", w.Code, w.Body.String())
	}
	res := decode[services.BulkResult](t, w)
	if res.Added != 2 || res.Skipped != 1 || len(res.Errors) != 1 {
		t.Fatalf("unexpected bulk result: %+v", res)
	}
	if !strings.Contains(res.Errors[0], "row 4") {
		t.Fatalf("error should name the row: %q", res.Errors[0])
	}

	for _, body := range []string{`[]`, `{"email":"a@x.com"}`, `nope`} {
		if w := doJSON(t, r, http.MethodPost, "/contacts/bulk", body); w.Code != http.StatusBadRequest {
			t.Fatalf("bulk %s -> %d", body, w.Code)
		}
	}

	big := "[" + strings.TrimSuffix(strings.Repeat(`{"email":"x@y.com"},`, maxBulkContacts+1), ",") + "]"
	if w := doJSON(t, r, http.MethodPost, "/contacts/bulk", big); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized bulk -> %d", w.Code)
	}
}

func TestListContacts_PaginationAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if _, _, err := store.Add(ctx, domain.NewContactInput{Email: e}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	r := testRouter(New(store, &stubCampaign{}, nil))

	w := doJSON(t, r, http.MethodGet, "/contacts?page=1&page_size=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	resp := decode[ListContactsResponse](t, w)
	if len(resp.Contacts) != 2 || resp.Pagination.Total != 3 || resp.Pagination.TotalPages != 2 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", resp.Pagination)
	}

	w = doJSON(t, r, http.MethodGet, "/contacts?page=2&page_size=2", "")
	resp = decode[ListContactsResponse](t, w)
	if len(resp.Contacts) != 1 || resp.Pagination.HasNext {
		t.Fatalf("unexpected last page: %+v", resp)
	}

	w = doJSON(t, r, http.MethodGet, "/contacts?status=RESPONDED", "")
	resp = decode[ListContactsResponse](t, w)
	if w.Code != http.StatusOK || resp.Contacts == nil || len(resp.Contacts) != 0 || resp.Pagination.Total != 0 {
		t.Fatalf("responded filter should be an empty list: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"contacts":[]`) {
		t.Fatalf("empty list must encode as []: %s", w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/contacts?status=bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid status -> %d", w.Code)
	}
}

func TestGetContact(t *testing.T) {
	store := newTestStore(t)
	c, _, err := store.Add(context.Background(), domain.NewContactInput{Email: "jane@x.com"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := testRouter(New(store, &stubCampaign{}, nil))

	w := doJSON(t, r, http.MethodGet, "/contacts/"+c.ID, "")
	if w.Code != http.StatusOK || decode[domain.Contact](t, w).Email != "jane@x.com" {
		t.Fatalf("get -> %d %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodGet, "/contacts/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/contacts/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound || decode[ErrorResponse](t, w).Code != ErrCodeNotFound {
		t.Fatalf("missing -> %d %s", w.Code, w.Body.String())
	}
}
