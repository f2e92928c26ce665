package sqlinline

// identities mirrors the auth provider's user record: the plan keys granted by
// billing and the small metadata document the app reads and writes whole.

const QSelectIdentitySignedIn = `--sql 416b4750-2b83-44a1-8885-0e8ae4169401
select signed_out_at is null
from identities
where id = $1::text
limit 1;
`

const QSelectIdentityHasPlan = `--sql 1ec6d456-002f-42a3-b4dc-5704a1a901b2
select $2::text = any(plan_keys)
from identities
where id = $1::text
limit 1;
`

const QSelectIdentityMetadata = `--sql b5b9d1d9-a0d3-4be7-819d-2c4e937523f8
select coalesce(metadata, '{}'::jsonb)
from identities
where id = $1::text
limit 1;
`

const QUpdateIdentityMetadata = `--sql 99d62440-9c44-49b5-a339-ec065854933a
update identities
set metadata = $2::jsonb,
    updated_at = now()
where id = $1::text
returning metadata;
`

const QUpsertIdentityPlans = `--sql a9abe7df-7663-4be2-91b2-93d885c88614
insert into identities (id, email, plan_keys, metadata, created_at, updated_at)
values ($1::text, nullif($2::text, ''), $3::text[], '{}'::jsonb, now(), now())
on conflict (id) do update set
    email = coalesce(excluded.email, identities.email),
    plan_keys = excluded.plan_keys,
    signed_out_at = null,
    updated_at = now()
returning id, coalesce(email, ''), plan_keys, metadata;
`

const QSelectIdentityByEmail = `--sql 030a4519-27e4-4a81-80a9-9a4c1ab99885
select id
from identities
where lower(email) = lower($1::text)
limit 1;
`
