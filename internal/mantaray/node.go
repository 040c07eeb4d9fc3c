// Package mantaray builds path tries in the mantaray v0.2 manifest format
// that Bee resolves for /bzz requests. Only building and saving is
// supported; manifests are never loaded back.
package mantaray

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
)

const (
	obfuscationKeySize = 32
	versionHashSize    = 31
	forkBitmapSize     = 32
	prefixMaxSize      = 30
	metadataSizeBytes  = 2

	// PathSeparator splits manifest paths.
	PathSeparator = '/'
)

const (
	typeValue             uint8 = 2
	typeEdge              uint8 = 4
	typeWithPathSeparator uint8 = 8
	typeWithMetadata      uint8 = 16
)

var versionHash = func() []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("mantaray:0.2"))
	return h.Sum(nil)[:versionHashSize]
}()

// SaveFunc persists one serialized node and returns its reference.
type SaveFunc func(ctx context.Context, data []byte) (domain.Address, error)

type fork struct {
	prefix []byte
	node   *Node
}

// Node is one node of a manifest trie. The zero value is an empty root.
type Node struct {
	nodeType uint8
	entry    *domain.Address
	metadata map[string]string
	forks    map[byte]*fork

	reference *domain.Address
}

// New returns an empty root node.
func New() *Node {
	return &Node{}
}

// AddFork maps path to ref, attaching metadata to the node that ends at path.
func (n *Node) AddFork(path []byte, ref domain.Address, metadata map[string]string) {
	n.reference = nil

	if len(path) == 0 {
		n.setEntry(ref)
		if len(metadata) > 0 {
			n.setMetadata(metadata)
		}
		return
	}
	if n.forks == nil {
		n.forks = make(map[byte]*fork)
	}

	f, ok := n.forks[path[0]]
	if !ok {
		child := New()
		if len(path) > prefixMaxSize {
			prefix, rest := path[:prefixMaxSize], path[prefixMaxSize:]
			child.AddFork(rest, ref, metadata)
			child.updateWithPathSeparator(prefix)
			n.forks[path[0]] = &fork{prefix: clone(prefix), node: child}
			n.nodeType |= typeEdge
			return
		}
		child.setEntry(ref)
		if len(metadata) > 0 {
			child.setMetadata(metadata)
		}
		child.updateWithPathSeparator(path)
		n.forks[path[0]] = &fork{prefix: clone(path), node: child}
		n.nodeType |= typeEdge
		return
	}

	common := commonPrefix(f.prefix, path)
	rest := f.prefix[len(common):]
	child := f.node
	if len(rest) > 0 {
		// split the existing fork at the shared prefix
		child = New()
		f.node.updateWithPathSeparator(rest)
		child.forks = map[byte]*fork{rest[0]: {prefix: clone(rest), node: f.node}}
		child.nodeType |= typeEdge
		if len(path) == len(common) {
			child.nodeType |= typeValue
		}
	}
	child.updateWithPathSeparator(path)
	child.AddFork(path[len(common):], ref, metadata)
	n.forks[path[0]] = &fork{prefix: clone(common), node: child}
	n.nodeType |= typeEdge
}

// Save persists every unsaved node bottom-up, children before parents, and
// returns the reference of n.
func (n *Node) Save(ctx context.Context, save SaveFunc) (domain.Address, error) {
	if n.reference != nil {
		return *n.reference, nil
	}
	for _, key := range n.forkKeys() {
		if _, err := n.forks[key].node.Save(ctx, save); err != nil {
			return domain.Address{}, err
		}
	}

	data, err := n.MarshalBinary()
	if err != nil {
		return domain.Address{}, err
	}
	ref, err := save(ctx, data)
	if err != nil {
		return domain.Address{}, fmt.Errorf("saving manifest node: %w", err)
	}
	n.reference = &ref
	return ref, nil
}

// Reference returns the saved reference of n, if any.
func (n *Node) Reference() (domain.Address, bool) {
	if n.reference == nil {
		return domain.Address{}, false
	}
	return *n.reference, true
}

// MarshalBinary serializes n. Every fork must already be saved.
func (n *Node) MarshalBinary() ([]byte, error) {
	entry := domain.ZeroAddress
	if n.entry != nil {
		entry = *n.entry
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, obfuscationKeySize))
	buf.Write(versionHash)
	buf.WriteByte(domain.AddressSize)
	buf.Write(entry[:])

	bitmap := make([]byte, forkBitmapSize)
	keys := n.forkKeys()
	for _, key := range keys {
		bitmap[key/8] |= 1 << (key % 8)
	}
	buf.Write(bitmap)

	for _, key := range keys {
		f := n.forks[key]
		if err := f.marshal(&buf); err != nil {
			return nil, fmt.Errorf("fork %q: %w", f.prefix, err)
		}
	}
	// the obfuscation key is all zeros, so the XOR pass is the identity
	return buf.Bytes(), nil
}

func (f *fork) marshal(buf *bytes.Buffer) error {
	ref, ok := f.node.Reference()
	if !ok {
		return fmt.Errorf("node has no reference")
	}

	buf.WriteByte(f.node.nodeType)
	buf.WriteByte(byte(len(f.prefix)))
	prefix := make([]byte, prefixMaxSize)
	copy(prefix, f.prefix)
	buf.Write(prefix)
	buf.Write(ref[:])

	if f.node.nodeType&typeWithMetadata == 0 {
		return nil
	}
	meta, err := marshalMetadata(f.node.metadata)
	if err != nil {
		return err
	}
	padding := metadataPadding(len(meta) + metadataSizeBytes)
	size := len(meta) + len(padding)
	if size > 0xffff {
		return fmt.Errorf("metadata is %d bytes", size)
	}
	buf.Write(binary.BigEndian.AppendUint16(nil, uint16(size)))
	buf.Write(meta)
	buf.Write(padding)
	return nil
}

func (n *Node) setEntry(ref domain.Address) {
	n.entry = &ref
	if !ref.IsZero() {
		n.nodeType |= typeValue
	}
}

func (n *Node) setMetadata(metadata map[string]string) {
	n.metadata = make(map[string]string, len(metadata))
	for k, v := range metadata {
		n.metadata[k] = v
	}
	n.nodeType |= typeWithMetadata
	if metadata["website-index-document"] != "" || metadata["website-error-document"] != "" {
		n.nodeType |= typeValue
	}
}

// updateWithPathSeparator flags n when path holds a separator after its
// first byte. A leading separator does not count.
func (n *Node) updateWithPathSeparator(path []byte) {
	if bytes.IndexByte(path, PathSeparator) > 0 {
		n.nodeType |= typeWithPathSeparator
	} else {
		n.nodeType &^= typeWithPathSeparator
	}
}

func (n *Node) forkKeys() []byte {
	keys := make([]byte, 0, len(n.forks))
	for i := 0; i < 256; i++ {
		if _, ok := n.forks[byte(i)]; ok {
			keys = append(keys, byte(i))
		}
	}
	return keys
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(metadata); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// metadataPadding pads with newlines to a 32-byte boundary, counting the
// two size bytes.
func metadataPadding(sizeWithHeader int) []byte {
	var length int
	switch {
	case sizeWithHeader < obfuscationKeySize:
		length = obfuscationKeySize - sizeWithHeader
	case sizeWithHeader > obfuscationKeySize:
		length = obfuscationKeySize - sizeWithHeader%obfuscationKeySize
	}
	return bytes.Repeat([]byte{'\n'}, length)
}

func commonPrefix(a, b []byte) []byte {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
