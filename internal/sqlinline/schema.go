package sqlinline

// Schema bootstrap run once at startup. Guarded with IF NOT EXISTS so the
// statements are safe to re-run on every boot.

const QCreateAccountsTable = `--sql d80461cd-6cb6-42fa-a526-c79688da348e
create table if not exists accounts (
    id uuid primary key default gen_random_uuid(),
    external_id text not null unique,
    email text not null default '',
    name text not null default '',
    avatar_url text not null default '',
    plan text not null default 'free',
    prompts_used int not null default 0,
    prompts_remaining int not null default 0,
    daily_prompts_limit int not null default 0,
    prompts_reset_at timestamptz not null,
    weekly_prompts_used int not null default 0,
    weekly_prompts_limit int not null default 0,
    weekly_prompts_reset_at timestamptz not null,
    chat_history jsonb not null default '[]'::jsonb,
    order_history jsonb not null default '[]'::jsonb,
    version bigint not null default 0,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now(),
    last_active_at timestamptz not null default now()
);
`

const QCreateUsageEventsTable = `--sql a17b7441-f0a7-4683-8d3c-deaa3b537fc9
create table if not exists usage_events (
    id uuid primary key default gen_random_uuid(),
    account_id uuid not null,
    request_id text,
    event_type text not null,
    success boolean not null,
    latency_ms int not null default 0,
    created_at timestamptz not null default now(),
    properties jsonb not null default '{}'::jsonb
);
`
