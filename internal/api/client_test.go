package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
)

func TestAmountMarshalJSON(t *testing.T) {
	tests := []struct {
		in   Amount
		want string
	}{
		{"12.5", `12.5`},
		{" 15 ", `15`},
		{"0", `0`},
		{"", `""`},
		{"abc", `"abc"`},
		{"Inf", `"Inf"`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "amount %q", tt.in)
	}
}

func TestNewExpenseRequestNullDate(t *testing.T) {
	body, err := json.Marshal(NewExpenseRequest("Food", "12.5", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"Food","amount":12.5,"date":null}`, string(body))

	body, err = json.Marshal(NewExpenseRequest("Food", "12.5", "2024-01-05"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"Food","amount":12.5,"date":"2024-01-05"}`, string(body))
}

func TestClientList(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/expenses", r.URL.Path)
		gotQuery = r.URL.Query().Get("month")
		_, _ = io.WriteString(w, `[{"id":2,"category":"Food","amount":7.5,"date":"2024-01-06"},`+
			`{"id":1,"category":"Food","amount":12.5,"date":null}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	items, err := c.List(context.Background(), "2024-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01", gotQuery)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, int64(750), items[0].Amount.Cents)
	assert.Equal(t, "2024-01-06", items[0].DateString())
	assert.Nil(t, items[1].Date)
}

func TestClientListRejectsInvalidAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"category":"Food","amount":12.5,"date":null},`+
			`{"id":2,"category":"Food","amount":-5,"date":null}]`)
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, time.Second, nil).List(context.Background(), "")
	require.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Nil(t, items)
}

func TestClientCreateReturnsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc", body["amount"])
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Invalid amount"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).Create(context.Background(), NewExpenseRequest("Food", "abc", ""))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid amount", apiErr.Message)
}

func TestClientErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second, nil).Delete(context.Background(), 3)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Message)
}

func TestClientUpdateAndDelete(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			_, _ = io.WriteString(w, `{"id":1,"category":"Food","amount":15,"date":"2024-01-05"}`)
		case http.MethodDelete:
			_, _ = io.WriteString(w, `{"message":"deleted"}`)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	updated, err := c.Update(context.Background(), 1, NewExpenseRequest("Food", "15", "2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, "15.00", updated.Amount.String())
	require.NoError(t, c.Delete(context.Background(), 1))
	assert.Equal(t, []string{"PUT /api/expenses/1", "DELETE /api/expenses/1"}, calls)
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second, nil).List(context.Background(), "")
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}
