package catalog

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers are part of the on-disk contract and must never be
// renumbered; append new fields instead.
const (
	// Catalog message.
	fieldCatalogRoot            = 1
	fieldCatalogTotalBooks      = 2
	fieldCatalogTotalCategories = 3
	fieldCatalogVersion         = 4

	// Category message.
	fieldCategoryID       = 1
	fieldCategoryTitle    = 2
	fieldCategoryLevel    = 3
	fieldCategoryParentID = 4
	fieldCategoryBook     = 5
	fieldCategorySub      = 6

	// Book message.
	fieldBookID            = 1
	fieldBookCategoryID    = 2
	fieldBookTitle         = 3
	fieldBookAuthor        = 4
	fieldBookOrder         = 5
	fieldBookTotalLines    = 6
	fieldBookIsBase        = 7
	fieldBookHasTargum     = 8
	fieldBookHasReference  = 9
	fieldBookHasCommentary = 10
	fieldBookHasOther      = 11
	fieldBookHasAlt        = 12
)

// Encode serializes the catalog to its binary form.
func Encode(c *Catalog) []byte {
	var buf []byte
	for _, root := range c.Roots {
		buf = protowire.AppendTag(buf, fieldCatalogRoot, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeCategory(root))
	}
	buf = protowire.AppendTag(buf, fieldCatalogTotalBooks, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(c.TotalBooks))
	buf = protowire.AppendTag(buf, fieldCatalogTotalCategories, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(c.TotalCategories))
	buf = protowire.AppendTag(buf, fieldCatalogVersion, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(c.Version))
	return buf
}

func encodeCategory(cat *Category) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldCategoryID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(cat.ID))
	buf = protowire.AppendTag(buf, fieldCategoryTitle, protowire.BytesType)
	buf = protowire.AppendString(buf, cat.Title)
	buf = protowire.AppendTag(buf, fieldCategoryLevel, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(cat.Level))
	if cat.ParentID != 0 {
		// Zigzag keeps the sentinel small even if ids ever go signed.
		buf = protowire.AppendTag(buf, fieldCategoryParentID, protowire.VarintType)
		buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(cat.ParentID))
	}
	for _, b := range cat.Books {
		buf = protowire.AppendTag(buf, fieldCategoryBook, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeBook(b))
	}
	for _, sub := range cat.Subcategories {
		buf = protowire.AppendTag(buf, fieldCategorySub, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeCategory(sub))
	}
	return buf
}

func encodeBook(b *Book) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldBookID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(b.ID))
	buf = protowire.AppendTag(buf, fieldBookCategoryID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(b.CategoryID))
	buf = protowire.AppendTag(buf, fieldBookTitle, protowire.BytesType)
	buf = protowire.AppendString(buf, b.Title)
	for _, a := range b.Authors {
		buf = protowire.AppendTag(buf, fieldBookAuthor, protowire.BytesType)
		buf = protowire.AppendString(buf, a)
	}
	if b.Order != 0 {
		buf = protowire.AppendTag(buf, fieldBookOrder, protowire.Fixed64Type)
		buf = protowire.AppendFixed64(buf, math.Float64bits(b.Order))
	}
	buf = protowire.AppendTag(buf, fieldBookTotalLines, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(b.TotalLines))

	bools := []struct {
		field protowire.Number
		value bool
	}{
		{fieldBookIsBase, b.IsBaseBook},
		{fieldBookHasTargum, b.HasTargumConnection},
		{fieldBookHasReference, b.HasReferenceConnection},
		{fieldBookHasCommentary, b.HasCommentaryConnection},
		{fieldBookHasOther, b.HasOtherConnection},
		{fieldBookHasAlt, b.HasAltStructures},
	}
	for _, f := range bools {
		if f.value {
			buf = protowire.AppendTag(buf, f.field, protowire.VarintType)
			buf = protowire.AppendVarint(buf, 1)
		}
	}
	return buf
}

// Decode parses the binary form back into a Catalog. Unknown fields are
// skipped so newer writers stay readable.
func Decode(data []byte) (*Catalog, error) {
	c := &Catalog{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("catalog: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldCatalogRoot && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("catalog: bad root: %w", protowire.ParseError(n))
			}
			data = data[n:]
			cat, err := decodeCategory(raw)
			if err != nil {
				return nil, err
			}
			c.Roots = append(c.Roots, cat)
		case num == fieldCatalogTotalBooks && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			c.TotalBooks = int(v)
		case num == fieldCatalogTotalCategories && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			c.TotalCategories = int(v)
		case num == fieldCatalogVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			c.Version = int(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("catalog: bad field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return c, nil
}

func decodeCategory(data []byte) (*Category, error) {
	cat := &Category{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == fieldCategoryID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			cat.ID = int64(v)
		case num == fieldCategoryTitle && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			cat.Title = s
		case num == fieldCategoryLevel && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			cat.Level = int(v)
		case num == fieldCategoryParentID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			cat.ParentID = protowire.DecodeZigZag(v)
		case num == fieldCategoryBook && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			b, err := decodeBook(raw)
			if err != nil {
				return nil, err
			}
			cat.Books = append(cat.Books, b)
		case num == fieldCategorySub && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			sub, err := decodeCategory(raw)
			if err != nil {
				return nil, err
			}
			cat.Subcategories = append(cat.Subcategories, sub)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return cat, nil
}

func decodeBook(data []byte) (*Book, error) {
	b := &Book{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == fieldBookID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			b.ID = int64(v)
		case num == fieldBookCategoryID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			b.CategoryID = int64(v)
		case num == fieldBookTitle && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			b.Title = s
		case num == fieldBookAuthor && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			b.Authors = append(b.Authors, s)
		case num == fieldBookOrder && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			b.Order = math.Float64frombits(v)
		case num == fieldBookTotalLines && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			b.TotalLines = int(v)
		case typ == protowire.VarintType && num >= fieldBookIsBase && num <= fieldBookHasAlt:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			set := v != 0
			switch num {
			case fieldBookIsBase:
				b.IsBaseBook = set
			case fieldBookHasTargum:
				b.HasTargumConnection = set
			case fieldBookHasReference:
				b.HasReferenceConnection = set
			case fieldBookHasCommentary:
				b.HasCommentaryConnection = set
			case fieldBookHasOther:
				b.HasOtherConnection = set
			case fieldBookHasAlt:
				b.HasAltStructures = set
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return b, nil
}
