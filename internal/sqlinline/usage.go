package sqlinline

const QInsertUsageEvent = `--sql 9602381b-563e-4c5b-bf37-a2dd3d96b4dc
insert into usage_events(id, account_id, request_id, event_type, success, latency_ms, created_at, properties)
values (gen_random_uuid(), $1::uuid, $2::text, $3::text, $4::boolean, $5::int, now(), coalesce($6::jsonb, '{}'::jsonb));
`
