// format_builders.go - Parser result type and the metadata builder shared by all format families.

package main

import "hash/crc32"

// ParsedContainer is the byte range a parser actually consumed, starting at
// the offset it was given.
type ParsedContainer struct {
	Data     []byte
	Offset   int
	FixedCRC uint32
}

func (c *ParsedContainer) Size() int { return len(c.Data) }

func newParsedContainer(src *BinarySource, start int) *ParsedContainer {
	end := src.Consumed()
	if end < start {
		end = start
	}
	data := src.Bytes()[start:end:end]
	return &ParsedContainer{Data: data, Offset: start, FixedCRC: crc32.ChecksumIEEE(data)}
}

// MetaBuilder receives the descriptive strings of a module. Raw 8-bit text
// is passed through untouched; the materializing builder decodes it.
type MetaBuilder interface {
	SetProgram(program string)
	SetTitle(title string)
	SetAuthor(author string)
	SetComment(comment string)
	SetComputer(computer string)
	SetDate(date string)
}

type stubMetaBuilder struct{}

func (stubMetaBuilder) SetProgram(string)  {}
func (stubMetaBuilder) SetTitle(string)    {}
func (stubMetaBuilder) SetAuthor(string)   {}
func (stubMetaBuilder) SetComment(string)  {}
func (stubMetaBuilder) SetComputer(string) {}
func (stubMetaBuilder) SetDate(string)     {}

// propertiesMetaBuilder writes decoded strings into module properties.
type propertiesMetaBuilder struct {
	props *Properties
}

func (b propertiesMetaBuilder) SetProgram(s string)  { b.props.Set(PropProgram, decodeModuleText(s)) }
func (b propertiesMetaBuilder) SetTitle(s string)    { b.props.Set(PropTitle, decodeModuleText(s)) }
func (b propertiesMetaBuilder) SetAuthor(s string)   { b.props.Set(PropAuthor, decodeModuleText(s)) }
func (b propertiesMetaBuilder) SetComment(s string)  { b.props.Set(PropComment, decodeModuleText(s)) }
func (b propertiesMetaBuilder) SetComputer(s string) { b.props.Set(PropComputer, decodeModuleText(s)) }
func (b propertiesMetaBuilder) SetDate(s string)     { b.props.Set(PropDate, decodeModuleText(s)) }
