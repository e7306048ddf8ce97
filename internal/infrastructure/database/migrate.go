package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const textSize = 2147483647

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "is_guest", Type: field.TypeBool, Default: false},
		{Name: "current_credits", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
		Indexes: []*schema.Index{
			{Name: "user_is_guest_id", Columns: []*schema.Column{UsersColumns[1], UsersColumns[0]}},
		},
	}

	// CreditTransactionsColumns holds the columns for the "credit_transactions" table.
	CreditTransactionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "user_id", Type: field.TypeString, Size: 64},
		{Name: "amount", Type: field.TypeInt},
		{Name: "type", Type: field.TypeString, Size: 16},
		{Name: "description", Type: field.TypeString, Size: 255, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	CreditTransactionsTable = &schema.Table{
		Name:       "credit_transactions",
		Columns:    CreditTransactionsColumns,
		PrimaryKey: []*schema.Column{CreditTransactionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "credit_transactions_users_transactions",
				Columns:    []*schema.Column{CreditTransactionsColumns[1]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "credittransaction_user_id_created_at", Columns: []*schema.Column{CreditTransactionsColumns[1], CreditTransactionsColumns[5]}},
		},
	}

	// TasksColumns holds the columns for the "tasks" table.
	TasksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "user_id", Type: field.TypeString, Size: 64},
		{Name: "title", Type: field.TypeString, Size: 255},
		{Name: "grade", Type: field.TypeString, Size: 8},
		{Name: "status", Type: field.TypeString, Size: 16},
		{Name: "image_urls", Type: field.TypeJSON},
		{Name: "recognized_words", Type: field.TypeJSON},
		{Name: "confirmed_words", Type: field.TypeJSON},
		{Name: "word_groups", Type: field.TypeJSON},
		{Name: "credits_used", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	TasksTable = &schema.Table{
		Name:       "tasks",
		Columns:    TasksColumns,
		PrimaryKey: []*schema.Column{TasksColumns[0]},
		Indexes: []*schema.Index{
			{Name: "task_user_id_created_at", Columns: []*schema.Column{TasksColumns[1], TasksColumns[10]}},
		},
	}

	// StoriesColumns holds the columns for the "stories" table.
	StoriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "task_id", Type: field.TypeString, Size: 64},
		{Name: "group_index", Type: field.TypeInt},
		{Name: "words", Type: field.TypeJSON},
		{Name: "content", Type: field.TypeString, Size: textSize},
		{Name: "content_zh", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "highlighted_words", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	StoriesTable = &schema.Table{
		Name:       "stories",
		Columns:    StoriesColumns,
		PrimaryKey: []*schema.Column{StoriesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "stories_tasks_stories",
				Columns:    []*schema.Column{StoriesColumns[1]},
				RefColumns: []*schema.Column{TasksColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "story_task_id_group_index", Columns: []*schema.Column{StoriesColumns[1], StoriesColumns[2]}},
		},
	}

	// ChallengeCardsColumns holds the columns for the "challenge_cards" table.
	ChallengeCardsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "story_id", Type: field.TypeString, Size: 64},
		{Name: "task_id", Type: field.TypeString, Size: 64},
		{Name: "group_index", Type: field.TypeInt},
		{Name: "card_index", Type: field.TypeInt},
		{Name: "card_type", Type: field.TypeString, Size: 16},
		{Name: "sub_type", Type: field.TypeString, Size: 32},
		{Name: "target_word", Type: field.TypeString, Size: 255},
		{Name: "content", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	ChallengeCardsTable = &schema.Table{
		Name:       "challenge_cards",
		Columns:    ChallengeCardsColumns,
		PrimaryKey: []*schema.Column{ChallengeCardsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "challenge_cards_stories_cards",
				Columns:    []*schema.Column{ChallengeCardsColumns[1]},
				RefColumns: []*schema.Column{StoriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "challenge_cards_tasks_cards",
				Columns:    []*schema.Column{ChallengeCardsColumns[2]},
				RefColumns: []*schema.Column{TasksColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "challengecard_task_id_group_index_card_index", Columns: []*schema.Column{ChallengeCardsColumns[2], ChallengeCardsColumns[3], ChallengeCardsColumns[4]}},
		},
	}

	// ChallengeAttemptsColumns holds the columns for the "challenge_attempts" table.
	ChallengeAttemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "card_id", Type: field.TypeString, Size: 64},
		{Name: "task_id", Type: field.TypeString, Size: 64},
		{Name: "user_id", Type: field.TypeString, Size: 64},
		{Name: "passed", Type: field.TypeBool},
		{Name: "score", Type: field.TypeInt},
		{Name: "response", Type: field.TypeJSON},
		{Name: "attempt_number", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeTime},
	}
	ChallengeAttemptsTable = &schema.Table{
		Name:       "challenge_attempts",
		Columns:    ChallengeAttemptsColumns,
		PrimaryKey: []*schema.Column{ChallengeAttemptsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "challenge_attempts_challenge_cards_attempts",
				Columns:    []*schema.Column{ChallengeAttemptsColumns[1]},
				RefColumns: []*schema.Column{ChallengeCardsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "challengeattempt_user_id_card_id", Columns: []*schema.Column{ChallengeAttemptsColumns[3], ChallengeAttemptsColumns[1]}},
			{Name: "challengeattempt_user_id_task_id", Columns: []*schema.Column{ChallengeAttemptsColumns[3], ChallengeAttemptsColumns[2]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		UsersTable,
		CreditTransactionsTable,
		TasksTable,
		StoriesTable,
		ChallengeCardsTable,
		ChallengeAttemptsTable,
	}
)

func init() {
	CreditTransactionsTable.ForeignKeys[0].RefTable = UsersTable
	StoriesTable.ForeignKeys[0].RefTable = TasksTable
	ChallengeCardsTable.ForeignKeys[0].RefTable = StoriesTable
	ChallengeCardsTable.ForeignKeys[1].RefTable = TasksTable
	ChallengeAttemptsTable.ForeignKeys[0].RefTable = ChallengeCardsTable
}

// Migrate creates or updates every table.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv, schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("prepare migration: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
