package index

import (
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/meigma/ffarchive/core/internal/arctype"
)

// Version is the snapshot layout version written by Encode.
const Version = 1

// fileIdentifier marks snapshot buffers.
var fileIdentifier = []byte("FFAM")

// Layout:
//
//	table Entry {
//	  name:string;              // slot 0
//	  offset:int;               // slot 1
//	  uncompressed_size:int;    // slot 2
//	  kind:ubyte;               // slot 3
//	  flags:uint;               // slot 4
//	}
//	table Snapshot {
//	  version:uint;             // slot 0
//	  source_id:string;         // slot 1
//	  entries:[Entry];          // slot 2
//	}
//	root_type Snapshot;
//	file_identifier "FFAM";
const (
	entryFieldCount = 5
	entryName       = 0
	entryOffset     = 1
	entrySize       = 2
	entryKind       = 3
	entryFlags      = 4

	snapshotFieldCount = 3
	snapshotVersion    = 0
	snapshotSourceID   = 1
	snapshotEntries    = 2
)

// Snapshot is the decoded content of a snapshot buffer.
type Snapshot struct {
	Version  uint32
	SourceID string
	Entries  []arctype.Entry
}

// Encode serializes entries, in order, together with the identifier of
// the container they were read from.
func Encode(sourceID string, entries []arctype.Entry) []byte {
	b := flatbuffers.NewBuilder(64 + len(entries)*32)

	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		name := b.CreateString(e.Name)
		b.StartObject(entryFieldCount)
		b.PrependUOffsetTSlot(entryName, name, 0)
		b.PrependInt32Slot(entryOffset, e.Offset, 0)
		b.PrependInt32Slot(entrySize, e.UncompressedSize, 0)
		b.PrependUint32Slot(entryFlags, e.Flags, 0)
		b.PrependByteSlot(entryKind, byte(e.Kind), 0)
		offsets[i] = b.EndObject()
	}

	b.StartVector(flatbuffers.SizeUOffsetT, len(offsets), flatbuffers.SizeUOffsetT)
	for i := len(offsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offsets[i])
	}
	vec := b.EndVector(len(offsets))
	sid := b.CreateString(sourceID)

	b.StartObject(snapshotFieldCount)
	b.PrependUint32Slot(snapshotVersion, Version, 0)
	b.PrependUOffsetTSlot(snapshotSourceID, sid, 0)
	b.PrependUOffsetTSlot(snapshotEntries, vec, 0)
	root := b.EndObject()
	b.FinishWithFileIdentifier(root, fileIdentifier)
	return b.FinishedBytes()
}

// Decode parses a snapshot buffer produced by Encode.
func Decode(data []byte) (s Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = Snapshot{}
			err = fmt.Errorf("%w: malformed snapshot: %v", arctype.ErrStructure, r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT+len(fileIdentifier) {
		return Snapshot{}, errors.New("archive: snapshot too short")
	}
	if string(data[flatbuffers.SizeUOffsetT:flatbuffers.SizeUOffsetT+len(fileIdentifier)]) != string(fileIdentifier) {
		return Snapshot{}, fmt.Errorf("%w: not a snapshot", arctype.ErrStructure)
	}

	root := &flatbuffers.Table{Bytes: data, Pos: flatbuffers.GetUOffsetT(data)}
	s.Version = root.GetUint32Slot(slot(snapshotVersion), 0)
	if s.Version != Version {
		return Snapshot{}, fmt.Errorf("%w: unsupported snapshot version %d", arctype.ErrStructure, s.Version)
	}
	s.SourceID = stringField(root, snapshotSourceID)

	o := flatbuffers.UOffsetT(root.Offset(slot(snapshotEntries)))
	if o == 0 {
		return s, nil
	}
	n := root.VectorLen(o)
	vec := root.Vector(o)
	s.Entries = make([]arctype.Entry, n)
	for i := range n {
		pos := root.Indirect(vec + flatbuffers.UOffsetT(i)*flatbuffers.SizeUOffsetT)
		t := &flatbuffers.Table{Bytes: data, Pos: pos}
		s.Entries[i] = arctype.Entry{
			Name: stringField(t, entryName),
			Record: arctype.Record{
				Offset:           t.GetInt32Slot(slot(entryOffset), 0),
				UncompressedSize: t.GetInt32Slot(slot(entrySize), 0),
				Kind:             arctype.Kind(t.GetByteSlot(slot(entryKind), 0)),
				Flags:            t.GetUint32Slot(slot(entryFlags), 0),
			},
		}
	}
	return s, nil
}

// slot converts a field index to its vtable offset.
func slot(field int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(flatbuffers.VtableMetadataFields+field) * flatbuffers.SizeVOffsetT
}

func stringField(t *flatbuffers.Table, field int) string {
	o := flatbuffers.UOffsetT(t.Offset(slot(field)))
	if o == 0 {
		return ""
	}
	return t.String(o + t.Pos)
}
