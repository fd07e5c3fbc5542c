package sqlinline

const accountColumns = `id, external_id, email, name, avatar_url, plan,
    prompts_used, prompts_remaining, daily_prompts_limit, prompts_reset_at,
    weekly_prompts_used, weekly_prompts_limit, weekly_prompts_reset_at,
    chat_history, order_history, version, created_at, updated_at, last_active_at`

// QUpsertAccount inserts a fresh free-tier account or, on conflict, touches
// profile fields and last_active_at only. Quota state is never written on the
// conflict path, so concurrent first-syncs converge without clobbering
// counters. $5..$8 carry the fresh-account limits and reset boundaries
// computed by the quota policy.
const QUpsertAccount = `--sql 06e215d1-ded4-4345-983e-48212ce3d26c
insert into accounts (
    external_id, email, name, avatar_url, plan,
    prompts_used, prompts_remaining, daily_prompts_limit, prompts_reset_at,
    weekly_prompts_used, weekly_prompts_limit, weekly_prompts_reset_at
)
values ($1::text, $2::text, $3::text, $4::text, 'free',
        0, $5::int, $5::int, $6::timestamptz,
        0, $7::int, $8::timestamptz)
on conflict (external_id) do update set
    email = excluded.email,
    name = excluded.name,
    avatar_url = excluded.avatar_url,
    updated_at = now(),
    last_active_at = now()
returning ` + accountColumns + `;
`

const QSelectAccountByExternalID = `--sql 2f6c2e9e-1815-4027-9780-8204480ceb52
select ` + accountColumns + `
from accounts
where external_id = $1::text
limit 1;
`

// QUpdateAccountState is the conditional write behind every account mutation.
// The version predicate makes the read-modify-write linearizable per user:
// zero rows updated means another writer won and the caller re-reads.
const QUpdateAccountState = `--sql 29752f50-ec60-4f0c-8816-a4bc82de84b5
update accounts set
    plan = $2::text,
    prompts_used = $3::int,
    prompts_remaining = $4::int,
    daily_prompts_limit = $5::int,
    prompts_reset_at = $6::timestamptz,
    weekly_prompts_used = $7::int,
    weekly_prompts_limit = $8::int,
    weekly_prompts_reset_at = $9::timestamptz,
    chat_history = $10::jsonb,
    order_history = $11::jsonb,
    version = version + 1,
    updated_at = now(),
    last_active_at = now()
where external_id = $1::text
  and version = $12::bigint;
`
