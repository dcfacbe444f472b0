package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := StaticProvider{"AAPL": decimal.RequireFromString("189.50")}

	price, err := p.GetLastPrice(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "189.5", price.String())

	_, err = p.GetLastPrice(context.Background(), "MSFT")
	assert.ErrorIs(t, err, ErrUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GetLastPrice(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.GetLastPrice(context.Background(), "AAPL")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestHTTPProvider_PathPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/INFY", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"INFY","price":"1520.35"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/quote/{symbol}", time.Second, nil)
	price, err := p.GetLastPrice(context.Background(), "infy")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1520.35").Equal(price))
}

func TestHTTPProvider_QueryParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TCS", r.URL.Query().Get("symbol"))
		assert.Equal(t, "demo", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"price": 3999.9}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/last?key=demo", time.Second, nil)
	price, err := p.GetLastPrice(context.Background(), "TCS")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("3999.9").Equal(price))
}

func TestHTTPProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
		{"missing price", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"X"}`))
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewHTTPProvider(srv.URL, 200*time.Millisecond, nil)
			_, err := p.GetLastPrice(context.Background(), "X")
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestHTTPProvider_EmptySymbol(t *testing.T) {
	p := NewHTTPProvider("http://127.0.0.1:1", time.Second, nil)
	_, err := p.GetLastPrice(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrUnavailable)
}
