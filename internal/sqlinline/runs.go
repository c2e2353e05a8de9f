package sqlinline

const QInsertRun = `--sql d693951d-07ef-449c-887c-113b5884e60f
insert into iteration_runs(
    id,
    status,
    config,
    current_iteration,
    current_batch,
    total_iterations,
    completed_count,
    failed_count,
    error_message,
    started_at
)
values ($1, $2, $3::jsonb, 0, 0, $4, 0, 0, '', $5);
`

const QUpdateRunStatus = `--sql 378fb399-92a6-4602-94b7-55120f392fd5
update iteration_runs
set status = $2,
    error_message = $3,
    completed_at = case when $2 in ('completed', 'failed') then now() else completed_at end,
    updated_at = now()
where id = $1;
`

const QUpdateRunProgress = `--sql f00f3929-156e-4758-9283-636d9a8259f5
update iteration_runs
set current_iteration = $2,
    completed_count = $3,
    failed_count = $4,
    current_batch = $5,
    updated_at = now()
where id = $1;
`

const QGetRun = `--sql 210f9eb3-8189-4767-a9c5-1af649afc755
select id, status, config, current_iteration, total_iterations,
       completed_count, failed_count, error_message, started_at, completed_at
from iteration_runs
where id = $1;
`

const QClaimQueuedRun = `--sql 2cb4ceeb-5257-423d-8043-54fe59fd0ae9
with next_run as (
    select id
    from iteration_runs
    where status = 'queued'
    order by started_at asc
    for update skip locked
    limit 1
),
claimed as (
    update iteration_runs
    set status = 'running', updated_at = now()
    where id in (select id from next_run)
    returning id, status, config, current_iteration, total_iterations,
              completed_count, failed_count, error_message, started_at, completed_at
)
select * from claimed;
`

const QInsertResult = `--sql ea3aaeb7-689b-4c6c-bb91-35b6ef08da15
insert into generated_results(
    id,
    run_id,
    iteration,
    source_photo_id,
    style_group,
    prompt,
    provider,
    blob_key,
    mime,
    status,
    error_detail,
    created_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`

const QListResultsByRun = `--sql 7d9ab3ec-e14d-4560-945f-b173a20fa4da
select r.id, r.run_id, r.iteration, r.source_photo_id, r.style_group,
       r.prompt, r.provider, r.blob_key, r.mime, r.status, r.error_detail,
       r.created_at,
       e.overall_score, e.criteria_scores, e.reasoning, e.strategy, e.clamp_adjusted
from generated_results r
left join evaluations e on e.result_id = r.id
where r.run_id = $1
order by r.iteration asc, r.created_at asc;
`

const QInsertEvaluation = `--sql 6745f3b7-e4f9-4c6a-a7a9-fd452fe741ff
insert into evaluations(
    result_id,
    overall_score,
    criteria_scores,
    reasoning,
    strategy,
    clamp_adjusted,
    created_at
)
values ($1, $2, $3::jsonb, $4, $5, $6, now())
on conflict (result_id) do update
set overall_score = excluded.overall_score,
    criteria_scores = excluded.criteria_scores,
    reasoning = excluded.reasoning,
    strategy = excluded.strategy,
    clamp_adjusted = excluded.clamp_adjusted;
`

const QScoreResultManually = `--sql e3c8b87f-bd87-4a8e-b64b-d00bd55aac55
update evaluations
set overall_score = $2,
    reasoning = case when $3 <> '' then $3 else reasoning end
where result_id = $1 and strategy = 'manual';
`

const QListRuns = `--sql 960aaa52-4615-4ced-97a1-d2558f1bd7c0
select id, status, config, current_iteration, total_iterations,
       completed_count, failed_count, error_message, started_at, completed_at
from iteration_runs
order by started_at desc
limit $1;
`
