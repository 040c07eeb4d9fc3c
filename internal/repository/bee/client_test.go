package bee_test

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	apperrors "github.com/Cafe137/swarm-chunked-upload/internal/errors"
	"github.com/Cafe137/swarm-chunked-upload/internal/postage"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/bee"
)

const testBatchID = "1000000000000000000000000000000000000000000000000000000000000001"

func newClient(t *testing.T, handler http.HandlerFunc, deferred bool) *bee.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	batch, err := domain.ParsePostageBatch(testBatchID, 20)
	if err != nil {
		t.Fatal(err)
	}
	client, err := bee.NewClient(server.URL, batch, deferred, 0)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func testStamp(t *testing.T, address domain.Address) postage.Stamp {
	t.Helper()
	batchID, _ := hex.DecodeString(testBatchID)
	key, _ := hex.DecodeString("2222222222222222222222222222222222222222222222222222222222222222")
	stamp, err := postage.Sign(address[:], batchID, key, 20, 1)
	if err != nil {
		t.Fatal(err)
	}
	return stamp
}

func TestClient_UploadChunk(t *testing.T) {
	chunk, err := bmt.NewChunk([]byte("hello world"), 11)
	if err != nil {
		t.Fatal(err)
	}
	stamp := testStamp(t, chunk.Address())

	tests := []struct {
		name      string
		reference string
		status    int
		wantErr   interface{}
	}{
		{
			name:      "matching reference",
			reference: chunk.Address().String(),
			status:    http.StatusCreated,
		},
		{
			name:      "mismatched reference",
			reference: domain.Address{0x01}.String(),
			status:    http.StatusCreated,
			wantErr:   &apperrors.IntegrityError{},
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			wantErr: &apperrors.NetworkError{},
		},
		{
			name:      "malformed reference",
			reference: "zz",
			status:    http.StatusCreated,
			wantErr:   &apperrors.NetworkError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotPath     string
				gotStamp    string
				gotDeferred string
				gotBody     []byte
			)
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotStamp = r.Header.Get(bee.HeaderPostageStamp)
				gotDeferred = r.Header.Get(bee.HeaderDeferredUpload)
				gotBody, _ = io.ReadAll(r.Body)
				w.WriteHeader(tt.status)
				if tt.status == http.StatusInternalServerError {
					fmt.Fprint(w, `{"message":"boom","code":500}`)
					return
				}
				fmt.Fprintf(w, `{"reference":%q}`, tt.reference)
			}, true)

			got, err := client.UploadChunk(context.Background(), stamp, chunk.Data())

			if gotPath != "/chunks" {
				t.Errorf("path = %s, want /chunks", gotPath)
			}
			if gotStamp != stamp.Hex() {
				t.Errorf("stamp header = %s, want %s", gotStamp, stamp.Hex())
			}
			if gotDeferred != "true" {
				t.Errorf("deferred header = %s, want true", gotDeferred)
			}
			if string(gotBody) != string(chunk.Data()) {
				t.Errorf("body = %x, want %x", gotBody, chunk.Data())
			}

			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("UploadChunk() error = %v", err)
				}
				if got != chunk.Address() {
					t.Errorf("UploadChunk() = %s, want %s", got, chunk.Address())
				}
			case *apperrors.IntegrityError:
				if !errors.As(err, &want) {
					t.Errorf("UploadChunk() error = %v, want IntegrityError", err)
				}
			case *apperrors.NetworkError:
				if !errors.As(err, &want) {
					t.Errorf("UploadChunk() error = %v, want NetworkError", err)
				}
			}
		})
	}
}

func TestClient_UploadChunkServerErrorCarriesStatus(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"message":"batch not usable","code":402}`)
	}, false)

	chunk, _ := bmt.NewChunk([]byte("x"), 1)
	_, err := client.UploadChunk(context.Background(), testStamp(t, chunk.Address()), chunk.Data())

	var networkErr *apperrors.NetworkError
	if !errors.As(err, &networkErr) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if networkErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("StatusCode = %d, want %d", networkErr.StatusCode, http.StatusPaymentRequired)
	}
	if networkErr.Err.Error() != "batch not usable" {
		t.Errorf("message = %q, want %q", networkErr.Err.Error(), "batch not usable")
	}
}

func TestClient_UploadChunkRejectsMalformedChunk(t *testing.T) {
	called := false
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, false)

	_, err := client.UploadChunk(context.Background(), postage.Stamp{}, []byte{1, 2, 3})
	var encodingErr *apperrors.EncodingError
	if !errors.As(err, &encodingErr) {
		t.Errorf("error = %v, want EncodingError", err)
	}
	if called {
		t.Error("malformed chunk reached the node")
	}
}

func TestClient_UploadData(t *testing.T) {
	want := domain.Address{0xaa, 0xbb}
	var gotBatch, gotDeferred, gotPath string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBatch = r.Header.Get(bee.HeaderPostageBatchID)
		gotDeferred = r.Header.Get(bee.HeaderDeferredUpload)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"reference":%q}`, want.String())
	}, false)

	got, err := client.UploadData(context.Background(), []byte("manifest node"))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("UploadData() = %s, want %s", got, want)
	}
	if gotPath != "/bytes" {
		t.Errorf("path = %s, want /bytes", gotPath)
	}
	if gotBatch != testBatchID {
		t.Errorf("batch header = %s, want %s", gotBatch, testBatchID)
	}
	if gotDeferred != "false" {
		t.Errorf("deferred header = %s, want false", gotDeferred)
	}
}

func TestClient_UnreachableNode(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	batch, _ := domain.ParsePostageBatch(testBatchID, 20)
	client, err := bee.NewClient(url, batch, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.UploadData(context.Background(), []byte("x"))
	var networkErr *apperrors.NetworkError
	if !errors.As(err, &networkErr) {
		t.Errorf("error = %v, want NetworkError", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	batch, _ := domain.ParsePostageBatch(testBatchID, 20)
	if _, err := bee.NewClient("ftp://localhost", batch, true, 0); err == nil {
		t.Error("NewClient(ftp://) succeeded, want error")
	}
}
