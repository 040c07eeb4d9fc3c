// Package postage signs postage stamps: the per-chunk authorization a Bee
// node checks before it accepts a chunk charged against a prepaid batch.
//
// The signed message is address || batchID || index || timestamp (80 bytes),
// hashed the way Ethereum personal messages are (EIP-191) and signed with a
// secp256k1 key. The index and timestamp bytes in the message are exactly
// the bytes carried in the stamp; their encoding depends on the Scheme.
package postage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	apperrors "github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

const (
	PrivateKeySize = 32
	messageSize    = domain.AddressSize + domain.BatchIDSize + IndexSize + TimestampSize
)

// Scheme selects how the stamp index and timestamp are encoded.
type Scheme int

const (
	// SchemeFlat encodes the bucket as a little-endian uint64 index and the
	// timestamp as little-endian milliseconds.
	SchemeFlat Scheme = iota
	// SchemeBucketCounter encodes the index as big-endian bucket || per-bucket
	// counter and the timestamp as big-endian milliseconds.
	SchemeBucketCounter
)

func (s Scheme) String() string {
	switch s {
	case SchemeFlat:
		return "flat"
	case SchemeBucketCounter:
		return "bucket-counter"
	default:
		return "unknown"
	}
}

// ParseScheme accepts "flat" and "bucket-counter".
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flat":
		return SchemeFlat, nil
	case "bucket-counter", "bucket_counter":
		return SchemeBucketCounter, nil
	default:
		return SchemeFlat, fmt.Errorf("unsupported stamp scheme: %s", s)
	}
}

// CounterStore hands out per-bucket counters for SchemeBucketCounter.
type CounterStore interface {
	Next(bucket uint32) (uint32, error)
}

// Sign produces a flat-scheme stamp for address with a millisecond timestamp.
func Sign(address, batchID, privateKey []byte, depth int, timestamp uint64) (Stamp, error) {
	if err := checkInputs(address, batchID); err != nil {
		return Stamp{}, err
	}
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return Stamp{}, err
	}
	bucket, err := BucketIndex(depth, address)
	if err != nil {
		return Stamp{}, err
	}

	var index, ts [8]byte
	binary.LittleEndian.PutUint64(index[:], uint64(bucket))
	binary.LittleEndian.PutUint64(ts[:], timestamp)
	return sign(key, address, batchID, index, ts), nil
}

// Signer stamps chunks for one batch with one key. It is safe for
// concurrent use when its CounterStore is.
type Signer struct {
	key      *secp256k1.PrivateKey
	batch    domain.PostageBatch
	scheme   Scheme
	counters CounterStore
	now      func() time.Time
}

// NewSigner validates the key and batch up front so that per-chunk signing
// can only fail on bad addresses. counters may be nil for SchemeFlat.
func NewSigner(batch domain.PostageBatch, privateKey []byte, scheme Scheme, counters CounterStore) (*Signer, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	if err := validateDepth(int(batch.Depth)); err != nil {
		return nil, err
	}
	if scheme == SchemeBucketCounter && counters == nil {
		return nil, errors.New("bucket-counter stamps need a counter store")
	}
	return &Signer{
		key:      key,
		batch:    batch,
		scheme:   scheme,
		counters: counters,
		now:      time.Now,
	}, nil
}

// Owner returns the Ethereum address of the signing key.
func (s *Signer) Owner() [20]byte {
	return EthereumAddress(s.key.PubKey())
}

func (s *Signer) Batch() domain.PostageBatch {
	return s.batch
}

// Stamp signs address with the current time.
func (s *Signer) Stamp(address domain.Address) (Stamp, error) {
	return s.StampAt(address, s.now())
}

// StampAt signs address with the given timestamp.
func (s *Signer) StampAt(address domain.Address, at time.Time) (Stamp, error) {
	bucket, err := BucketIndex(int(s.batch.Depth), address[:])
	if err != nil {
		return Stamp{}, err
	}

	var index, ts [8]byte
	millis := uint64(at.UnixMilli())
	switch s.scheme {
	case SchemeBucketCounter:
		counter, err := s.counters.Next(bucket)
		if err != nil {
			return Stamp{}, err
		}
		binary.BigEndian.PutUint32(index[:4], bucket)
		binary.BigEndian.PutUint32(index[4:], counter)
		binary.BigEndian.PutUint64(ts[:], millis)
	default:
		binary.LittleEndian.PutUint64(index[:], uint64(bucket))
		binary.LittleEndian.PutUint64(ts[:], millis)
	}
	return sign(s.key, address[:], s.batch.BatchID[:], index, ts), nil
}

// ParsePrivateKey accepts a 32-byte big-endian secp256k1 scalar in [1, N).
func ParsePrivateKey(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, apperrors.LengthError("private key", PrivateKeySize, len(b))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, &apperrors.EncodingError{
			Field: "private key",
			Err:   errors.New("not a valid secp256k1 secret scalar"),
		}
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

// RecoverOwner recovers the Ethereum address that signed stamp for address.
func RecoverOwner(stamp Stamp, address domain.Address) ([20]byte, error) {
	digest := personalMessageDigest(message(address[:], stamp.BatchID[:], stamp.Index, stamp.Timestamp))

	compact := make([]byte, SignatureSize)
	compact[0] = stamp.Signature[64]
	copy(compact[1:], stamp.Signature[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return [20]byte{}, fmt.Errorf("recovering stamp signer: %w", err)
	}
	return EthereumAddress(pub), nil
}

// EthereumAddress is the last 20 bytes of keccak256 of the uncompressed
// public key without its 0x04 prefix.
func EthereumAddress(pub *secp256k1.PublicKey) [20]byte {
	sum := keccak256(pub.SerializeUncompressed()[1:])
	var out [20]byte
	copy(out[:], sum[12:])
	return out
}

func checkInputs(address, batchID []byte) error {
	if len(address) != domain.AddressSize {
		return apperrors.LengthError("address", domain.AddressSize, len(address))
	}
	if len(batchID) != domain.BatchIDSize {
		return apperrors.LengthError("batch id", domain.BatchIDSize, len(batchID))
	}
	return nil
}

func sign(key *secp256k1.PrivateKey, address, batchID []byte, index, timestamp [8]byte) Stamp {
	digest := personalMessageDigest(message(address, batchID, index, timestamp))

	// SignCompact returns v || r || s with v = 27 + recovery id.
	compact := ecdsa.SignCompact(key, digest, false)

	var stamp Stamp
	copy(stamp.BatchID[:], batchID)
	stamp.Index = index
	stamp.Timestamp = timestamp
	copy(stamp.Signature[:64], compact[1:])
	stamp.Signature[64] = compact[0]
	return stamp
}

func message(address, batchID []byte, index, timestamp [8]byte) []byte {
	msg := make([]byte, 0, messageSize)
	msg = append(msg, address...)
	msg = append(msg, batchID...)
	msg = append(msg, index[:]...)
	return append(msg, timestamp[:]...)
}

func personalMessageDigest(msg []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))
	return keccak256([]byte(prefix), msg)
}

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}
