package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient implements Client for testing.
type mockClient struct {
	queryFn     func(ctx context.Context, soql string, out any) error
	insertOneFn func(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	updateOneFn func(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	if m.queryFn != nil {
		return m.queryFn(ctx, soql, out)
	}
	return nil
}

func (m *mockClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if m.insertOneFn != nil {
		return m.insertOneFn(ctx, sObjectName, record)
	}
	return "00Q000000000001", nil
}

func (m *mockClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if m.updateOneFn != nil {
		return m.updateOneFn(ctx, sObjectName, id, fields)
	}
	return nil
}

func TestFindLeadByEmail(t *testing.T) {
	var gotSOQL string
	c := &mockClient{
		queryFn: func(_ context.Context, soql string, out any) error {
			gotSOQL = soql
			leads := out.(*[]Lead)
			*leads = []Lead{{ID: "00Q1", Email: "jane@acme.com"}}
			return nil
		},
	}

	lead, err := FindLeadByEmail(context.Background(), c, "jane@acme.com")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "00Q1", lead.ID)
	assert.Contains(t, gotSOQL, "FROM Lead WHERE Email = 'jane@acme.com' LIMIT 1")
}

func TestFindLeadByEmail_NotFound(t *testing.T) {
	lead, err := FindLeadByEmail(context.Background(), &mockClient{}, "nobody@acme.com")
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestFindLeadByEmail_Escapes(t *testing.T) {
	var gotSOQL string
	c := &mockClient{
		queryFn: func(_ context.Context, soql string, _ any) error {
			gotSOQL = soql
			return nil
		},
	}

	_, err := FindLeadByEmail(context.Background(), c, "o'brien@acme.com")
	require.NoError(t, err)
	assert.Contains(t, gotSOQL, `'o\'brien@acme.com'`)
}

func TestFindLeadByEmail_Error(t *testing.T) {
	c := &mockClient{
		queryFn: func(context.Context, string, any) error { return errors.New("session expired") },
	}
	_, err := FindLeadByEmail(context.Background(), c, "a@b.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: find lead by email a@b.com")
}

func TestCreateLead(t *testing.T) {
	var gotObject string
	c := &mockClient{
		insertOneFn: func(_ context.Context, obj string, _ map[string]any) (string, error) {
			gotObject = obj
			return "00Qnew", nil
		},
	}

	id, err := CreateLead(context.Background(), c, map[string]any{"LastName": "Doe", "Company": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "00Qnew", id)
	assert.Equal(t, "Lead", gotObject)
}

func TestCreateLead_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{"missing last name", map[string]any{"Company": "Acme"}, "LastName"},
		{"missing company", map[string]any{"LastName": "Doe"}, "Company"},
		{"empty company", map[string]any{"LastName": "Doe", "Company": ""}, "Company"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateLead(context.Background(), &mockClient{}, tt.fields)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUpdateLead(t *testing.T) {
	var gotID string
	c := &mockClient{
		updateOneFn: func(_ context.Context, _ string, id string, _ map[string]any) error {
			gotID = id
			return nil
		},
	}
	require.NoError(t, UpdateLead(context.Background(), c, "00Q1", map[string]any{"Rating": "Hot"}))
	assert.Equal(t, "00Q1", gotID)
}

func TestUpdateLead_Validation(t *testing.T) {
	err := UpdateLead(context.Background(), &mockClient{}, "", map[string]any{"Rating": "Hot"})
	assert.ErrorContains(t, err, "sf: lead id is required")

	err = UpdateLead(context.Background(), &mockClient{}, "00Q1", nil)
	assert.ErrorContains(t, err, "sf: no fields to update")
}
