package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type PortfolioRow struct {
	Salary    float64
	Revision  int64
	UpdatedAt string
}

type AccountRow struct {
	ID          string
	Position    int64
	Name        string
	Amount      float64
	AnnualYield float64
}

type ExtraIncomeRow struct {
	ID          string
	Position    int64
	Description string
	Amount      float64
	IncomeDate  string
}

const getPortfolio = `SELECT salary, revision, updated_at FROM portfolio WHERE id = 1`

func (q *Queries) GetPortfolio(ctx context.Context) (PortfolioRow, error) {
	row := q.db.QueryRowContext(ctx, getPortfolio)
	var p PortfolioRow
	err := row.Scan(&p.Salary, &p.Revision, &p.UpdatedAt)
	return p, err
}

const upsertPortfolio = `
INSERT INTO portfolio (id, salary, revision, updated_at) VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET salary = excluded.salary, revision = excluded.revision, updated_at = excluded.updated_at`

func (q *Queries) UpsertPortfolio(ctx context.Context, p PortfolioRow) error {
	_, err := q.db.ExecContext(ctx, upsertPortfolio, p.Salary, p.Revision, p.UpdatedAt)
	return err
}

const listAccounts = `SELECT id, position, name, amount, annual_yield FROM accounts ORDER BY position`

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		var i AccountRow
		if err := rows.Scan(&i.ID, &i.Position, &i.Name, &i.Amount, &i.AnnualYield); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteAccounts = `DELETE FROM accounts`

func (q *Queries) DeleteAccounts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAccounts)
	return err
}

const insertAccount = `INSERT INTO accounts (id, position, name, amount, annual_yield) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertAccount(ctx context.Context, a AccountRow) error {
	_, err := q.db.ExecContext(ctx, insertAccount, a.ID, a.Position, a.Name, a.Amount, a.AnnualYield)
	return err
}

const listExtraIncomes = `SELECT id, position, description, amount, income_date FROM extra_incomes ORDER BY position`

func (q *Queries) ListExtraIncomes(ctx context.Context) ([]ExtraIncomeRow, error) {
	rows, err := q.db.QueryContext(ctx, listExtraIncomes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExtraIncomeRow
	for rows.Next() {
		var i ExtraIncomeRow
		if err := rows.Scan(&i.ID, &i.Position, &i.Description, &i.Amount, &i.IncomeDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteExtraIncomes = `DELETE FROM extra_incomes`

func (q *Queries) DeleteExtraIncomes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteExtraIncomes)
	return err
}

const insertExtraIncome = `INSERT INTO extra_incomes (id, position, description, amount, income_date) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertExtraIncome(ctx context.Context, e ExtraIncomeRow) error {
	_, err := q.db.ExecContext(ctx, insertExtraIncome, e.ID, e.Position, e.Description, e.Amount, e.IncomeDate)
	return err
}
