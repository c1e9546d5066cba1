package main

import (
	"net/http"
	"testing"
)

func TestNewHTTPClientSizesIdlePool(t *testing.T) {
	transport, ok := newHTTPClient(16).Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport")
	}
	if transport.MaxIdleConnsPerHost != 16 {
		t.Fatalf("expected 16 idle conns per host, got %d", transport.MaxIdleConnsPerHost)
	}
	if transport == http.DefaultTransport {
		t.Fatalf("default transport must not be shared")
	}
}
