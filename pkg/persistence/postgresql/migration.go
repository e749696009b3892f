package postgresql

// migrations returns the schema migrations, keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				trigger_type TEXT NOT NULL,
				condition_groups JSONB NOT NULL DEFAULT '[]',
				steps JSONB NOT NULL DEFAULT '[]',
				owner TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_trigger
				ON workflows (trigger_type) WHERE status = 'active';
		`,
		2: `
			CREATE TABLE IF NOT EXISTS execution_logs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				workflow_name TEXT NOT NULL DEFAULT '',
				trigger_type TEXT NOT NULL,
				trigger_data JSONB NOT NULL DEFAULT '{}',
				status TEXT NOT NULL,
				is_test BOOLEAN NOT NULL DEFAULT FALSE,
				skipped BOOLEAN NOT NULL DEFAULT FALSE,
				actions_executed JSONB NOT NULL DEFAULT '[]',
				resume_position INTEGER NOT NULL DEFAULT 0,
				resume_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_execution_logs_workflow
				ON execution_logs (workflow_id, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_execution_logs_pending
				ON execution_logs (resume_at, created_at) WHERE status = 'pending';
		`,
	}
}
