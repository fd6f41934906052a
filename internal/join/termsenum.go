package join

import (
	"GoJoin/internal/bitset"
	"GoJoin/internal/index"
)

type acceptStatus int

const (
	acceptYes acceptStatus = iota
	acceptYesAndSeek
	acceptNo
	acceptNoAndSeek
	acceptEnd
)

// keyTermsEnum walks the terms of a field that equal one of the keys of a
// frozen JoinKeyTable. It moves through the sorted keys and the dictionary
// together, seeking the dictionary forward to the next wanted key and
// stepping past keys the dictionary lacks, so each is visited once.
type keyTermsEnum struct {
	tenum *index.TermsEnum
	table *JoinKeyTable
	ids   []int32

	lastKey  string
	upto     int
	seekKey  string
	haveSeek bool
	doSeek   bool
	keyID    int32
}

func newKeyTermsEnum(tenum *index.TermsEnum, table *JoinKeyTable) *keyTermsEnum {
	e := &keyTermsEnum{tenum: tenum, table: table, ids: table.SortedIDs(), doSeek: true}
	if len(e.ids) > 0 {
		e.lastKey = table.Key(e.ids[len(e.ids)-1])
		e.seekKey = table.Key(e.ids[0])
		e.haveSeek = true
	}
	return e
}

// Next moves to the next matching term. Returns false once no key is left.
func (e *keyTermsEnum) Next() bool {
	if len(e.ids) == 0 {
		return false
	}
	for {
		if e.doSeek {
			e.doSeek = false
			if !e.haveSeek {
				return false
			}
			e.haveSeek = false
			if e.tenum.SeekCeil(e.seekKey) == index.SeekEnd {
				return false
			}
		} else if !e.tenum.Next() {
			return false
		}

		switch e.accept(e.tenum.Term()) {
		case acceptYesAndSeek:
			e.doSeek = true
			return true
		case acceptYes:
			return true
		case acceptNoAndSeek:
			e.doSeek = true
		case acceptEnd:
			return false
		}
	}
}

func (e *keyTermsEnum) accept(term string) acceptStatus {
	if term > e.lastKey {
		return acceptEnd
	}
	last := len(e.ids) - 1
	for {
		key := e.table.Key(e.ids[e.upto])
		switch {
		case term == key:
			e.keyID = e.ids[e.upto]
			if e.upto == last {
				return acceptYes
			}
			e.upto++
			e.seekKey = e.table.Key(e.ids[e.upto])
			e.haveSeek = true
			return acceptYesAndSeek
		case key > term:
			e.seekKey = key
			e.haveSeek = true
			return acceptNoAndSeek
		case e.upto == last:
			return acceptNo
		default:
			e.upto++
		}
	}
}

// Term returns the current term.
func (e *keyTermsEnum) Term() string { return e.tenum.Term() }

// KeyID returns the table ID of the current term.
func (e *keyTermsEnum) KeyID() int32 { return e.keyID }

// Postings returns the postings of the current term restricted to accept.
func (e *keyTermsEnum) Postings(accept bitset.Bits) *index.PostingsEnum {
	return e.tenum.Postings(accept)
}
