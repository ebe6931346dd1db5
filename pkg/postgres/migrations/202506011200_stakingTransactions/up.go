package _202506011200_stakingTransactions

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`create table if not exists staking_transactions (
			id uuid primary key,
			type varchar(16) not null,
			account varchar(42) not null,
			block_number bigint not null,
			amount numeric not null,
			manual_entry boolean not null default true,
			created_at timestamp with time zone not null,
			updated_at timestamp with time zone not null
		);`,
		`create index if not exists idx_staking_transactions_account on staking_transactions(account);`,
		`create index if not exists idx_staking_transactions_block_number on staking_transactions(block_number);`,
	}

	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			fmt.Printf("Failed to execute query: %s\n", query)
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202506011200_stakingTransactions"
}
