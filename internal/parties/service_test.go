package parties

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klinika/klinika/internal/shared"
)

// fakeGateway replays canned upstream payloads and records calls.
type fakeGateway struct {
	responses map[string]string
	err       error
	lastBody  any
	lastQuery url.Values
}

func (f *fakeGateway) decode(t *testing.T, path string) any {
	t.Helper()
	raw, ok := f.responses[path]
	if !ok {
		t.Fatalf("unexpected upstream path %s", path)
	}
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

type gatewayCall struct {
	t    *testing.T
	fake *fakeGateway
}

func (g gatewayCall) Get(ctx context.Context, tenantID, path string, query url.Values) (any, error) {
	if g.fake.err != nil {
		return nil, g.fake.err
	}
	g.fake.lastQuery = query
	return g.fake.decode(g.t, path), nil
}

func (g gatewayCall) Post(ctx context.Context, tenantID, path string, body any) (any, error) {
	if g.fake.err != nil {
		return nil, g.fake.err
	}
	g.fake.lastBody = body
	return g.fake.decode(g.t, path), nil
}

func (g gatewayCall) Put(ctx context.Context, tenantID, path string, body any) (any, error) {
	if g.fake.err != nil {
		return nil, g.fake.err
	}
	g.fake.lastBody = body
	return g.fake.decode(g.t, path), nil
}

func TestListToleratesEnvelopeVariants(t *testing.T) {
	ctx := context.Background()
	variants := []string{
		`{"data":[{"id":1,"kind":"patient","name":"ayşe yılmaz"}],"total":1}`,
		`{"data":{"data":[{"id":1,"kind":"patient","name":"ayşe yılmaz"}],"total":1}}`,
		`{"data":{"items":[{"id":1,"kind":"patient","name":"ayşe yılmaz"}]},"pagination":{"total":1}}`,
		`{"items":[{"id":1,"kind":"patient","name":"ayşe yılmaz"}],"total":1}`,
	}
	for _, raw := range variants {
		fake := &fakeGateway{responses: map[string]string{"/api/parties": raw}}
		svc := NewService(gatewayCall{t, fake}, nil)

		items, pagination, err := svc.List(ctx, "t1", ListFilter{Page: 1, PerPage: 20})
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, "Ayşe Yılmaz", items[0].Name)
		require.Equal(t, 1, pagination.Total)
	}
}

func TestListRequiresTenant(t *testing.T) {
	svc := NewService(gatewayCall{t, &fakeGateway{}}, nil)
	_, _, err := svc.List(context.Background(), "", ListFilter{})
	require.ErrorIs(t, err, shared.ErrTenantMissing)
}

func TestListForwardsSearchQuery(t *testing.T) {
	fake := &fakeGateway{responses: map[string]string{"/api/parties": `{"data":[]}`}}
	svc := NewService(gatewayCall{t, fake}, nil)

	_, _, err := svc.List(context.Background(), "t1", ListFilter{Search: "ayşe", Kind: KindPatient, Page: 2, PerPage: 50})
	require.NoError(t, err)
	require.Equal(t, "ayşe", fake.lastQuery.Get("q"))
	require.Equal(t, "patient", fake.lastQuery.Get("kind"))
	require.Equal(t, "2", fake.lastQuery.Get("page"))
}

func TestGetDoubleWrappedParty(t *testing.T) {
	fake := &fakeGateway{responses: map[string]string{
		"/api/parties/7": `{"data":{"data":{"id":7,"kind":"customer","name":"mehmet demir"}}}`,
	}}
	svc := NewService(gatewayCall{t, fake}, nil)

	party, err := svc.Get(context.Background(), "t1", 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), party.ID)
	require.Equal(t, "Mehmet Demir", party.Name)
}

func TestGetMissingPayloadIsNotFound(t *testing.T) {
	fake := &fakeGateway{responses: map[string]string{"/api/parties/9": `{"data":null}`}}
	svc := NewService(gatewayCall{t, fake}, nil)

	_, err := svc.Get(context.Background(), "t1", 9)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateValidatesTCKN(t *testing.T) {
	svc := NewService(gatewayCall{t, &fakeGateway{}}, nil)
	bad := "10000000147"
	_, err := svc.Create(context.Background(), "t1", "u1", CreatePartyRequest{
		Kind: KindPatient,
		Name: "x",
		TCKN: &bad,
	})
	require.ErrorIs(t, err, ErrInvalidTCKN)
}

func TestCreateNormalizesNameBeforeUpstream(t *testing.T) {
	fake := &fakeGateway{responses: map[string]string{
		"/api/parties": `{"success":true,"data":{"id":3,"kind":"patient","name":"Ayşe Yılmaz"}}`,
	}}
	svc := NewService(gatewayCall{t, fake}, nil)

	party, err := svc.Create(context.Background(), "t1", "u1", CreatePartyRequest{
		Kind: KindPatient,
		Name: "  ayşe   yılmaz ",
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), party.ID)

	sent, ok := fake.lastBody.(CreatePartyRequest)
	require.True(t, ok)
	require.Equal(t, "Ayşe Yılmaz", sent.Name)
}

func TestCreateRejectedByUpstream(t *testing.T) {
	fake := &fakeGateway{responses: map[string]string{
		"/api/parties": `{"error":"tckn already registered"}`,
	}}
	svc := NewService(gatewayCall{t, fake}, nil)

	_, err := svc.Create(context.Background(), "t1", "u1", CreatePartyRequest{Kind: KindPatient, Name: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "tckn already registered")
}
