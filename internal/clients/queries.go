package clients

const (
	upsertClient = `
		INSERT INTO clients (
			guid,
			name,
			type,
			device,
			os,
			commands,
			last_modified
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guid) DO UPDATE SET
			name          = excluded.name,
			type          = excluded.type,
			device        = excluded.device,
			os            = excluded.os,
			commands      = excluded.commands,
			last_modified = excluded.last_modified;`

	getClient = `
		SELECT
			guid,
			name,
			type,
			device,
			os,
			commands,
			last_modified
		FROM clients
		WHERE guid = $1;`

	getAllClients = `
		SELECT
			guid,
			name,
			type,
			device,
			os,
			commands,
			last_modified
		FROM clients
		ORDER BY guid;`

	getClientsSince = `
		SELECT
			guid,
			name,
			type,
			device,
			os,
			commands,
			last_modified
		FROM clients
		WHERE last_modified >= $1
		ORDER BY guid;`

	getGuidsSince = `
		SELECT guid
		FROM clients
		WHERE last_modified >= $1
		ORDER BY guid;`

	countClients = `
		SELECT COUNT(*) FROM clients;`

	wipeClients = `
		DELETE FROM clients;`
)
