package refcheck

import "sort"

// IDSet は 1 つのスナップショットに含まれるリモート ID の集合です。
type IDSet map[string]struct{}

// NewIDSet は ID の集合を生成します。空文字列は含めません。
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Has は id が集合に含まれるかを返します。
func (s IDSet) Has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}

// Ref はレコードが参照する外部キー 1 つ分です。
type Ref struct {
	Field string
	ID    string
	Known IDSet
}

// Skip はエンティティごとの除外件数です。
type Skip struct {
	Entity  string
	Dropped int
	Cleared int
}

// Validator は参照先がスナップショットに存在しないレコードを除外し、件数を記録します。
type Validator struct {
	dropped map[string]int
	cleared map[string]int
}

// New は Validator を生成します。
func New() *Validator {
	return &Validator{dropped: make(map[string]int), cleared: make(map[string]int)}
}

// Check は全ての参照が解決できる場合に true を返します。
// 解決できない参照がある場合は entity の除外件数を加算して false を返します。
func (v *Validator) Check(entity string, refs ...Ref) bool {
	for _, r := range refs {
		if !r.Known.Has(r.ID) {
			v.dropped[entity]++
			return false
		}
	}
	return true
}

// Reject は参照以外の理由 (ID 欠落・重複など) で除外したレコードを entity の除外件数に加算します。
func (v *Validator) Reject(entity string) {
	v.dropped[entity]++
}

// Optional は任意参照を検査します。参照が空なら "" を返し、解決できない場合は
// entity の解除件数を加算して "" を返します。解決できる場合は ID をそのまま返します。
func (v *Validator) Optional(entity string, r Ref) string {
	if r.ID == "" {
		return ""
	}
	if !r.Known.Has(r.ID) {
		v.cleared[entity]++
		return ""
	}
	return r.ID
}

// Dropped は entity の除外件数を返します。
func (v *Validator) Dropped(entity string) int {
	return v.dropped[entity]
}

// Report は除外・解除があったエンティティを名前順に返します。
func (v *Validator) Report() []Skip {
	byEntity := make(map[string]*Skip)
	for e, n := range v.dropped {
		byEntity[e] = &Skip{Entity: e, Dropped: n}
	}
	for e, n := range v.cleared {
		s, ok := byEntity[e]
		if !ok {
			s = &Skip{Entity: e}
			byEntity[e] = s
		}
		s.Cleared = n
	}

	out := make([]Skip, 0, len(byEntity))
	for _, s := range byEntity {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}
