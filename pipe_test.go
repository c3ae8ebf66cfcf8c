//go:build linux || darwin

package chanselect

import "testing"

func TestPipePoolAllocateDeallocateRecycles(t *testing.T) {
	var pool pipePool
	defer pool.closeAll()

	p1, err := pool.allocate()
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	firstReadFD := p1.readFD

	p1.refs = 0
	if err := pool.deallocate(p1); err != nil {
		t.Fatalf("deallocate: %v", err)
	}

	p2, err := pool.allocate()
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if p2.readFD != firstReadFD {
		t.Fatalf("expected recycled pipe's fd %d, got %d", firstReadFD, p2.readFD)
	}
}

func TestWriteByteReadByteRoundTrip(t *testing.T) {
	var pool pipePool
	defer pool.closeAll()

	p, err := pool.allocate()
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if err := writeByte(p.writeFD, byte(protoPoke)); err != nil {
		t.Fatalf("writeByte: %v", err)
	}
	b, err := readByte(p.readFD)
	if err != nil {
		t.Fatalf("readByte: %v", err)
	}
	if protoMsg(b) != protoPoke {
		t.Fatalf("readByte returned %v, want protoPoke", protoMsg(b))
	}
}

func TestDrainPipeRemovesResidualBytes(t *testing.T) {
	var pool pipePool
	defer pool.closeAll()

	p, err := pool.allocate()
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := writeByte(p.writeFD, byte(protoDone)); err != nil {
		t.Fatalf("writeByte: %v", err)
	}

	if err := drainPipe(p.readFD); err != nil {
		t.Fatalf("drainPipe: %v", err)
	}

	p.refs = 0
	if err := pool.deallocate(p); err != nil {
		t.Fatalf("deallocate: %v", err)
	}
}
