package models

// All returns every model in dependency order, for AutoMigrate in tests and
// development databases. Production schemas come from the SQL migrations.
func All() []any {
	return []any{
		&PropertyModel{},
		&UnitModel{},
		&TenantModel{},
		&LeaseModel{},
		&FinancialPeriodModel{},
		&ExpenseModel{},
		&ReconciliationHistoryModel{},
		&ReconciliationItemModel{},
		&ConversationModel{},
		&MessageModel{},
		&OutboxEntryModel{},
	}
}
