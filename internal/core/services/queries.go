// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic for interacting with data
// sources. This file centralizes the BigQuery SQL used by the job store and
// the usage ledger. Table names are injected with fmt.Sprintf (identifiers
// cannot be query parameters); all values are bound as named parameters.
package services

const (
	// QryFindJobById retrieves a complete job record by its unique ID.
	QryFindJobById = "SELECT * FROM `%s` WHERE id = @id"

	// QryClaimJob is the compare-and-swap that moves a job from queued to
	// processing. The WHERE clause makes the claim atomic: when two workers
	// race on the same delivery, exactly one UPDATE reports an affected row.
	QryClaimJob = "UPDATE `%s` SET status = 'processing', stage = @stage, progress = 0, updated_at = CURRENT_TIMESTAMP() WHERE id = @id AND status = 'queued'"

	// QryUpdateProgress records stage transitions and percentage progress
	// while a job is being processed. Touching updated_at is what keeps the
	// reaper away from live jobs.
	QryUpdateProgress = "UPDATE `%s` SET stage = @stage, progress = @progress, updated_at = CURRENT_TIMESTAMP() WHERE id = @id AND status = 'processing'"

	// QryMarkDone finalizes a successful job. The actual duration units are
	// written exactly once here, after the outputs have been replaced.
	QryMarkDone = "UPDATE `%s` SET status = 'done', stage = 'done', progress = 100, actual_duration_units = @units, error = '', updated_at = CURRENT_TIMESTAMP() WHERE id = @id AND status = 'processing'"

	// QryMarkError moves a job to the terminal error state with a message.
	QryMarkError = "UPDATE `%s` SET status = 'error', error = @message, updated_at = CURRENT_TIMESTAMP() WHERE id = @id AND status IN ('queued', 'processing')"

	// QryRequeueJob returns a stranded processing job to the queue and burns
	// one unit of its requeue budget. The status guard keeps a racing worker
	// that finished late from being requeued after completion.
	QryRequeueJob = "UPDATE `%s` SET status = 'queued', stage = @stage, requeues = requeues + 1, updated_at = CURRENT_TIMESTAMP() WHERE id = @id AND status = 'processing'"

	// QryListStaleJobs finds processing jobs with no progress update within
	// the staleness window. These are candidates for the reaper.
	QryListStaleJobs = "SELECT * FROM `%s` WHERE status = 'processing' AND updated_at < TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL @minutes MINUTE)"

	// QryDeleteOutputs removes the previous output set for a job so a re-run
	// replaces rather than appends. Paired with the insert in ReplaceOutputs.
	QryDeleteOutputs = "DELETE FROM `%s` WHERE job_id = @job_id"

	// QryListOutputs returns a job's outputs in stable variant order.
	QryListOutputs = "SELECT * FROM `%s` WHERE job_id = @job_id ORDER BY idx"

	// QryFindOutputById retrieves one output record by its unique ID.
	QryFindOutputById = "SELECT * FROM `%s` WHERE id = @id"

	// QryMergeUsage upserts a usage record keyed by its idempotency key, so a
	// redelivered or reaped job reports billable minutes exactly once.
	QryMergeUsage = "MERGE `%s` T USING (SELECT @key AS idempotency_key, @job_id AS job_id, @owner_id AS owner_id, @org_id AS org_id, @minutes AS billable_minutes, CURRENT_TIMESTAMP() AS reported_at) S ON T.idempotency_key = S.idempotency_key WHEN NOT MATCHED THEN INSERT (idempotency_key, job_id, owner_id, org_id, billable_minutes, reported_at) VALUES (S.idempotency_key, S.job_id, S.owner_id, S.org_id, S.billable_minutes, S.reported_at)"
)
