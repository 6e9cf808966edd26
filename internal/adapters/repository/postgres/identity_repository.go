package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	pgdb "github.com/ogurasousui/minijobber-sync/internal/platform/db/postgres"
)

const mappingTableExistsSQL = `SELECT to_regclass('public.mj_cloud_id_map') IS NOT NULL`

const selectMappingsSQL = `
        SELECT cloud_id, table_name, local_id::text
          FROM mj_cloud_id_map
         ORDER BY table_name, cloud_id
    `

// IdentityRepository は mj_cloud_id_map からマッピングを読み込みます。
type IdentityRepository struct {
	pool pgdb.Queryer
}

// NewIdentityRepository は IdentityRepository を生成します。
func NewIdentityRepository(pool pgdb.Queryer) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// LoadMappings は永続化済みの全マッピングを返します。
// マッピングテーブルがまだ作成されていない場合は空として扱います。
// 存在しないテーブルへの問い合わせは呼び出し元のトランザクションを中断させるため、先に存在を確認します。
func (r *IdentityRepository) LoadMappings(ctx context.Context) ([]identity.Mapping, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	if err := exec.QueryRow(ctx, mappingTableExistsSQL).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: check mapping table: %w", err)
	}
	if !exists {
		return nil, nil
	}

	rows, err := exec.Query(ctx, selectMappingsSQL)
	if err != nil {
		if pgdb.IsUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: load mappings: %w", err)
	}
	defer rows.Close()

	var out []identity.Mapping
	for rows.Next() {
		var remoteID, table, local string
		if err := rows.Scan(&remoteID, &table, &local); err != nil {
			return nil, fmt.Errorf("postgres: scan mapping: %w", err)
		}
		localID, err := uuid.Parse(local)
		if err != nil {
			return nil, fmt.Errorf("postgres: mapping %s/%s: %w", table, remoteID, err)
		}
		out = append(out, identity.Mapping{RemoteID: remoteID, EntityType: identity.EntityType(table), LocalID: localID})
	}
	if err := rows.Err(); err != nil {
		if pgdb.IsUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: iterate mappings: %w", err)
	}
	return out, nil
}
