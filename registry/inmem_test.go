package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/provenir/provenir/digest"
)

func TestInMemRegisterThenResolve(t *testing.T) {
	ctx := context.Background()
	creator := common.HexToAddress("0x1111111111111111111111111111111111111111")
	reg := NewInMem(creator)
	hash := digest.Engine{}.SumBytes([]byte("registered content"))

	if _, ok, err := reg.Resolve(ctx, hash); err != nil || ok {
		t.Fatalf("Resolve before register: ok=%v err=%v, want absent", ok, err)
	}

	entry, err := reg.Register(ctx, hash, "ipfs://bafymanifest")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if entry.CreatorAddress != creator {
		t.Fatalf("entry creator = %s, want %s", entry.CreatorAddress.Hex(), creator.Hex())
	}
	if entry.TxHash == (common.Hash{}) {
		t.Fatalf("entry has zero tx hash")
	}

	got, ok, err := reg.Resolve(ctx, hash)
	if err != nil || !ok {
		t.Fatalf("Resolve after register: ok=%v err=%v", ok, err)
	}
	if got.ManifestURI != "ipfs://bafymanifest" {
		t.Fatalf("resolved manifest URI = %q", got.ManifestURI)
	}
}

func TestInMemDuplicateRegisterKeepsFirstEntry(t *testing.T) {
	ctx := context.Background()
	reg := NewInMem(common.HexToAddress("0x2222222222222222222222222222222222222222"))
	hash := digest.Engine{}.SumBytes([]byte("registered once"))

	first, err := reg.Register(ctx, hash, "ipfs://first")
	if err != nil {
		t.Fatalf("Register(1) failed: %v", err)
	}
	second, err := reg.Register(ctx, hash, "ipfs://second")
	if err != nil {
		t.Fatalf("Register(2) failed: %v", err)
	}
	if second.ManifestURI != first.ManifestURI || second.TxHash != first.TxHash {
		t.Fatalf("duplicate register replaced the entry: %+v vs %+v", second, first)
	}
}

func TestInMemRegisterWithoutCreatorFails(t *testing.T) {
	reg := NewInMem(common.Address{})
	hash := digest.Engine{}.SumBytes([]byte("no signer"))

	_, err := reg.Register(context.Background(), hash, "ipfs://uri")
	var chainErr *ChainError
	if !errors.As(err, &chainErr) || chainErr.Reason != ReasonNoSigningKey {
		t.Fatalf("got %v, want ChainError(%s)", err, ReasonNoSigningKey)
	}
}

func TestInMemInjectedErrors(t *testing.T) {
	reg := NewInMem(common.HexToAddress("0x3333333333333333333333333333333333333333"))
	reg.Now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	hash := digest.Engine{}.SumBytes([]byte("failure paths"))

	reg.ResolveErr = &ChainError{Reason: ReasonUnreachable}
	if _, _, err := reg.Resolve(context.Background(), hash); err == nil {
		t.Fatalf("Resolve ignored injected error")
	}
	reg.ResolveErr = nil

	reg.RegisterErr = &ChainError{Reason: ReasonReverted}
	if _, err := reg.Register(context.Background(), hash, "ipfs://uri"); err == nil {
		t.Fatalf("Register ignored injected error")
	}
	reg.RegisterErr = nil

	entry, err := reg.Register(context.Background(), hash, "ipfs://uri")
	if err != nil {
		t.Fatalf("Register after clearing errors failed: %v", err)
	}
	if !entry.RegisteredAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("RegisteredAt = %v, want the injected clock", entry.RegisteredAt)
	}
}
