package redis

const (
	// addActionScript atomically stores an entry and indexes it by time
	addActionScript = `
local entry_key = KEYS[1]      -- {prefix}action:{id}
local index_key = KEYS[2]      -- {prefix}actions

local id = ARGV[1]
local timestamp = ARGV[2]
local score = ARGV[3]
local source = ARGV[4]
local kind = ARGV[5]
local target = ARGV[6]
local outcome = ARGV[7]
local err = ARGV[8]
local duration_ms = ARGV[9]

redis.call('HSET', entry_key,
  'id', id,
  'timestamp', timestamp,
  'source', source,
  'kind', kind,
  'target', target,
  'outcome', outcome,
  'error', err,
  'duration_ms', duration_ms
)

redis.call('ZADD', index_key, score, id)

return 'OK'
`

	// deleteActionsBeforeScript removes every entry scored below the cutoff
	deleteActionsBeforeScript = `
local index_key = KEYS[1]      -- {prefix}actions
local prefix = ARGV[1]
local cutoff = ARGV[2]

local ids = redis.call('ZRANGEBYSCORE', index_key, '-inf', '(' .. cutoff)
for _, id in ipairs(ids) do
  redis.call('DEL', prefix .. 'action:' .. id)
end
redis.call('ZREMRANGEBYSCORE', index_key, '-inf', '(' .. cutoff)

return #ids
`
)
