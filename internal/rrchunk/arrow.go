// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrchunk

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrerrors"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// Schema metadata keys (spec §6): "Schema-level metadata carries
// rerun.id (recording id), rerun.entity_path, rerun.is_sorted, and
// per-column metadata rerun.kind ... plus, for components, the
// component descriptor triple." Renamed to this module's own prefix.
const (
	metaRecordingID = "rrd.recording_id"
	metaChunkID     = "rrd.chunk_id"
	metaEntityPath  = "rrd.entity_path"
	metaIsSorted    = "rrd.is_sorted"

	metaColumnKind        = "rrd.kind"
	metaTimelineKind      = "rrd.timeline.kind"
	metaComponentArch     = "rrd.component.archetype"
	metaComponentField    = "rrd.component.field"
	metaComponentType     = "rrd.component.type"

	kindRowID     = "row_id"
	kindIndex     = "index"
	kindComponent = "component"
)

const rowIDFieldName = "row_id"

func timeFieldName(timeline string) string { return "time:" + timeline }
func componentFieldName(key string) string { return "component:" + key }

// ToRecordBatch serializes the chunk to an Arrow record batch, carrying
// recordingID in the schema metadata (spec §6). The round-trip through
// FromRecordBatch is semantically lossless (spec §8 invariant 6).
func (c *Chunk) ToRecordBatch(recordingID string) (arrow.Record, error) {
	n := c.RowCount()

	fields := make([]arrow.Field, 0, 1+len(c.index)+len(c.components))
	cols := make([]arrow.Array, 0, cap(fields))

	rowIDBldr := array.NewFixedSizeBinaryBuilder(defaultAllocator, &arrow.FixedSizeBinaryType{ByteWidth: 16})
	for _, rid := range c.rowIDs {
		b, err := rid.MarshalBinary()
		if err != nil {
			rowIDBldr.Release()
			return nil, fmt.Errorf("marshal row id: %w", err)
		}
		rowIDBldr.Append(b)
	}
	rowIDArr := rowIDBldr.NewArray()
	rowIDBldr.Release()
	fields = append(fields, arrow.Field{
		Name: rowIDFieldName,
		Type: rowIDArr.DataType(),
		Metadata: arrow.NewMetadata([]string{metaColumnKind}, []string{kindRowID}),
	})
	cols = append(cols, rowIDArr)

	// Deterministic column order for stable byte output across equal chunks.
	timelineNames := make([]string, 0, len(c.index))
	for name := range c.index {
		timelineNames = append(timelineNames, name)
	}
	sort.Strings(timelineNames)

	for _, name := range timelineNames {
		ic := c.index[name]
		bldr := array.NewInt64Builder(defaultAllocator)
		for _, t := range ic.times {
			bldr.Append(int64(t))
		}
		arr := bldr.NewArray()
		bldr.Release()
		fields = append(fields, arrow.Field{
			Name: timeFieldName(name),
			Type: arr.DataType(),
			Metadata: arrow.NewMetadata(
				[]string{metaColumnKind, metaTimelineKind},
				[]string{kindIndex, ic.timeline.Kind().String()},
			),
		})
		cols = append(cols, arr)
	}

	componentKeys := make([]string, 0, len(c.components))
	for key := range c.components {
		componentKeys = append(componentKeys, key)
	}
	sort.Strings(componentKeys)

	for _, key := range componentKeys {
		cc := c.components[key]
		cc.buf.Arrow().Retain()
		fields = append(fields, arrow.Field{
			Name: componentFieldName(key),
			Type: cc.buf.Arrow().DataType(),
			Metadata: arrow.NewMetadata(
				[]string{metaColumnKind, metaComponentArch, metaComponentField, metaComponentType},
				[]string{kindComponent, cc.descriptor.Archetype, cc.descriptor.Field, string(cc.descriptor.Type)},
			),
		})
		cols = append(cols, cc.buf.Arrow())
	}

	schemaMeta := arrow.NewMetadata(
		[]string{metaRecordingID, metaChunkID, metaEntityPath, metaIsSorted},
		[]string{recordingID, c.id.String(), c.entityPath.String(), strconv.FormatBool(c.sortedByRowID)},
	)
	schema := arrow.NewSchema(fields, &schemaMeta)

	return array.NewRecord(schema, cols, int64(n)), nil
}

// FromRecordBatch reconstructs a Chunk (and the recording id it was
// serialized with) from a record batch built by ToRecordBatch.
func FromRecordBatch(rec arrow.Record) (*Chunk, string, error) {
	schema := rec.Schema()
	meta := schema.Metadata()

	recordingID, _ := metaLookup(meta, metaRecordingID)
	chunkIDStr, _ := metaLookup(meta, metaChunkID)
	entityPathStr, _ := metaLookup(meta, metaEntityPath)
	isSortedStr, _ := metaLookup(meta, metaIsSorted)

	chunkID, err := rrtime.ParseChunkID(chunkIDStr)
	if err != nil {
		return nil, "", fmt.Errorf("%w: chunk id %q: %v", rrerrors.ErrHeaderCorrupt, chunkIDStr, err)
	}

	c := &Chunk{
		id:            chunkID,
		entityPath:    rrpath.Parse(entityPathStr),
		sortedByRowID: isSortedStr == "true",
		index:         make(map[string]*indexColumn),
		components:    make(map[string]*componentColumn),
	}

	n := int(rec.NumRows())

	for i := 0; i < int(rec.NumCols()); i++ {
		field := schema.Field(i)
		col := rec.Column(i)
		kind, _ := metaLookup(field.Metadata, metaColumnKind)

		switch kind {
		case kindRowID:
			fsb, ok := col.(*array.FixedSizeBinary)
			if !ok {
				return nil, "", fmt.Errorf("%w: row_id column has unexpected type %T", rrerrors.ErrHeaderCorrupt, col)
			}
			rowIDs := make([]rrtime.RowID, n)
			for r := 0; r < n; r++ {
				var rid rrtime.RowID
				if err := rid.UnmarshalBinary(fsb.Value(r)); err != nil {
					return nil, "", fmt.Errorf("%w: row id %d: %v", rrerrors.ErrHeaderCorrupt, r, err)
				}
				rowIDs[r] = rid
			}
			c.rowIDs = rowIDs

		case kindIndex:
			timelineKindStr, _ := metaLookup(field.Metadata, metaTimelineKind)
			name := field.Name[len("time:"):]
			i64, ok := col.(*array.Int64)
			if !ok {
				return nil, "", fmt.Errorf("%w: index column %q has unexpected type %T", rrerrors.ErrHeaderCorrupt, name, col)
			}
			times := make([]rrtime.TimeInt, n)
			allStatic := true
			for r := 0; r < n; r++ {
				times[r] = rrtime.TimeInt(i64.Value(r))
				if !times[r].IsStatic() {
					allStatic = false
				}
			}
			sortedByTime := true
			for r := 1; r < n; r++ {
				if times[r].Compare(times[r-1]) < 0 {
					sortedByTime = false
					break
				}
			}
			c.index[name] = &indexColumn{
				timeline:     rrtime.NewTimeline(name, parseTimelineKind(timelineKindStr)),
				times:        times,
				allStatic:    allStatic,
				sortedByTime: sortedByTime,
			}

		case kindComponent:
			arch, _ := metaLookup(field.Metadata, metaComponentArch)
			fld, _ := metaLookup(field.Metadata, metaComponentField)
			typ, _ := metaLookup(field.Metadata, metaComponentType)
			desc := rrcomponent.New(arch, fld, rrcomponent.ComponentType(typ))
			col.Retain()
			c.components[desc.Key()] = &componentColumn{descriptor: desc, buf: newArrowColumn(col)}
		}
	}

	return c, recordingID, nil
}

func metaLookup(meta arrow.Metadata, key string) (string, bool) {
	idx := meta.FindKey(key)
	if idx < 0 {
		return "", false
	}
	return meta.Values()[idx], true
}

func parseTimelineKind(s string) rrtime.TimelineKind {
	switch s {
	case "duration":
		return rrtime.TimelineDuration
	case "timestamp":
		return rrtime.TimelineTimestamp
	default:
		return rrtime.TimelineSequence
	}
}
