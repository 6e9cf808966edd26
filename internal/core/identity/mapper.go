package identity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const maxGenerateAttempts = 8

// Generator は新しいローカル ID を生成します。
type Generator func() uuid.UUID

// Mapper はリモート ID を安定したローカル ID に解決します。
// 一度作成されたマッピングは上書きされません。新規に作成したものは Pending で取得できます。
type Mapper struct {
	byKey   map[key]uuid.UUID
	owners  map[EntityType]map[uuid.UUID]string
	pending []Mapping
	gen     Generator
}

// NewMapper は既存マッピングから Mapper を構築します。gen が nil の場合は uuid.New を使います。
func NewMapper(existing []Mapping, gen Generator) (*Mapper, error) {
	if gen == nil {
		gen = uuid.New
	}
	m := &Mapper{
		byKey:  make(map[key]uuid.UUID, len(existing)),
		owners: make(map[EntityType]map[uuid.UUID]string),
		gen:    gen,
	}

	for _, mp := range existing {
		if err := validate(mp.RemoteID, mp.EntityType); err != nil {
			return nil, err
		}
		k := key{remoteID: mp.RemoteID, entityType: mp.EntityType}
		if owner, ok := m.owner(mp.EntityType, mp.LocalID); ok && owner != mp.RemoteID {
			return nil, fmt.Errorf("%w: %s %s (%s, %s)", ErrDuplicateLocalID, mp.EntityType, mp.LocalID, owner, mp.RemoteID)
		}
		m.store(k, mp.LocalID)
	}
	return m, nil
}

// Resolve は (remoteID, entityType) に対応するローカル ID を返します。
// 未登録の場合は fixed (指定時) または新規生成した ID を割り当てて記録します。
func (m *Mapper) Resolve(remoteID string, entityType EntityType, fixed *uuid.UUID) (uuid.UUID, error) {
	if err := validate(remoteID, entityType); err != nil {
		return uuid.Nil, err
	}

	k := key{remoteID: remoteID, entityType: entityType}
	if local, ok := m.byKey[k]; ok {
		if fixed != nil && *fixed != local {
			return uuid.Nil, fmt.Errorf("%w: %s %s -> %s (want %s)", ErrFixedConflict, entityType, remoteID, local, *fixed)
		}
		return local, nil
	}

	var local uuid.UUID
	if fixed != nil {
		if owner, ok := m.owner(entityType, *fixed); ok {
			return uuid.Nil, fmt.Errorf("%w: %s %s owned by %s", ErrLocalIDTaken, entityType, *fixed, owner)
		}
		local = *fixed
	} else {
		generated, err := m.generate(entityType)
		if err != nil {
			return uuid.Nil, err
		}
		local = generated
	}

	m.store(k, local)
	m.pending = append(m.pending, Mapping{RemoteID: remoteID, EntityType: entityType, LocalID: local})
	return local, nil
}

// Lookup は既に解決済みのローカル ID を返します。新規割り当ては行いません。
func (m *Mapper) Lookup(remoteID string, entityType EntityType) (uuid.UUID, bool) {
	local, ok := m.byKey[key{remoteID: remoteID, entityType: entityType}]
	return local, ok
}

// Pending は今回の実行で新規に割り当てたマッピングを割り当て順に返します。
func (m *Mapper) Pending() []Mapping {
	out := make([]Mapping, len(m.pending))
	copy(out, m.pending)
	return out
}

// All は既存・新規を含む全マッピングを種別、リモート ID の順に返します。
func (m *Mapper) All() []Mapping {
	out := make([]Mapping, 0, len(m.byKey))
	for k, local := range m.byKey {
		out = append(out, Mapping{RemoteID: k.remoteID, EntityType: k.entityType, LocalID: local})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].RemoteID < out[j].RemoteID
	})
	return out
}

func (m *Mapper) generate(entityType EntityType) (uuid.UUID, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		id := m.gen()
		if id == uuid.Nil {
			continue
		}
		if _, taken := m.owner(entityType, id); !taken {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("%w: %s", ErrExhausted, entityType)
}

func (m *Mapper) owner(entityType EntityType, local uuid.UUID) (string, bool) {
	remote, ok := m.owners[entityType][local]
	return remote, ok
}

func (m *Mapper) store(k key, local uuid.UUID) {
	m.byKey[k] = local
	owners, ok := m.owners[k.entityType]
	if !ok {
		owners = make(map[uuid.UUID]string)
		m.owners[k.entityType] = owners
	}
	owners[local] = k.remoteID
}

func validate(remoteID string, entityType EntityType) error {
	if strings.TrimSpace(remoteID) == "" {
		return ErrInvalidRemoteID
	}
	if strings.TrimSpace(string(entityType)) == "" {
		return ErrInvalidType
	}
	return nil
}
