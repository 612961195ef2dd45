package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestExtractSuccess(t *testing.T) {
	model := new(mockModel)
	model.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Dhaka to Chittagong")
	})).Return(`{"date":"2024-03-01","ticketCount":10,"rate":50,"subject":" Green Line booking "}`, nil).Once()

	draft, err := NewExtractor(model, 0, nil).Extract(context.Background(), "10 seats Dhaka to Chittagong")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", draft.Date)
	assert.Equal(t, int64(10), draft.TicketCount)
	assert.True(t, draft.Rate.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "Green Line booking", draft.Subject)
	model.AssertExpectations(t)
}

func TestExtractEmptyInputSkipsModel(t *testing.T) {
	model := new(mockModel)
	_, err := NewExtractor(model, 0, nil).Extract(context.Background(), "  \n\t")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, ErrEmptyInput)
	model.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestExtractModelFailure(t *testing.T) {
	model := new(mockModel)
	model.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503 unavailable"))

	_, err := NewExtractor(model, 0, nil).Extract(context.Background(), "email")
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "model call", exErr.Reason)
	assert.ErrorIs(t, err, ErrExtraction)
}

type slowModel struct{}

func (slowModel) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestExtractTimeout(t *testing.T) {
	_, err := NewExtractor(slowModel{}, 10*time.Millisecond, nil).Extract(context.Background(), "email")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    Draft
	}{
		{
			name: "subject optional",
			raw:  `{"date":"2024-03-02","ticketCount":4,"rate":100}`,
			want: Draft{Date: "2024-03-02", TicketCount: 4, Rate: decimal.NewFromInt(100)},
		},
		{
			name: "fractional rate",
			raw:  `{"date":"2024-03-02","ticketCount":3,"rate":12.5}`,
			want: Draft{Date: "2024-03-02", TicketCount: 3, Rate: decimal.RequireFromString("12.5")},
		},
		{name: "missing rate", raw: `{"date":"2024-03-02","ticketCount":4}`, wantErr: true},
		{name: "null rate", raw: `{"date":"2024-03-02","ticketCount":4,"rate":null}`, wantErr: true},
		{name: "missing date", raw: `{"ticketCount":4,"rate":50}`, wantErr: true},
		{name: "fractional count", raw: `{"date":"2024-03-02","ticketCount":2.5,"rate":50}`, wantErr: true},
		{name: "count as string", raw: `{"date":"2024-03-02","ticketCount":"4","rate":50}`, wantErr: true},
		{name: "invalid json", raw: `{"date":`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrExtraction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Date, got.Date)
			assert.Equal(t, tt.want.TicketCount, got.TicketCount)
			assert.True(t, tt.want.Rate.Equal(got.Rate))
			assert.Equal(t, tt.want.Subject, got.Subject)
		})
	}
}

func TestTicketSchema(t *testing.T) {
	s := TicketSchema()
	assert.ElementsMatch(t, []string{"date", "ticketCount", "rate"}, s.Required)
	assert.Len(t, s.Properties, 4)
	assert.Contains(t, s.Properties, "subject")
}
