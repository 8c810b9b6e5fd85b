/*
Package emojidb is a client for the EmojiDB engine, an embedded database that
runs as a child process and speaks line-delimited JSON over its standard streams.

# Client

Use NewClient to create a client and Connect to start the engine. When
Config.EnginePath is empty the engine binary for the current platform is
downloaded once into the user cache directory:

	client := emojidb.NewClient(&emojidb.Config{})
	if _, err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close(ctx)

# Tables

Open a database, then define and use tables through a Table handle:

	if _, err := client.Open(ctx, "app.db", "secret"); err != nil {
		return err
	}
	users := client.Table("users",
		emojidb.Field{Name: "id", Type: emojidb.FieldTypeInt, Unique: true},
		emojidb.Field{Name: "name", Type: emojidb.FieldTypeString},
	)
	if err := users.Define(ctx); err != nil {
		return err
	}
	if err := users.Insert(ctx, emojidb.Row{"id": 1, "name": "ada"}); err != nil {
		return err
	}
	rows, err := users.Query(ctx, emojidb.Row{"name": "ada"})

Calls may be issued from many goroutines at once. Each waits for its own
response, however the engine orders its replies.

# Write Data via Cables

Use InsertCable to batch many single-row writes into batch_insert requests:

	cable := client.InsertCable("users")
	cable.Start(ctx)
	defer cable.Close()

	errCh := cable.Send(emojidb.Row{"id": 2, "name": "grace"})

# Raw Calls

Submit sends any method and returns a CallHandle to await later:

	h, err := client.Submit(ctx, "count", map[string]any{"table": "users"})
	if err != nil {
		return err
	}
	data, err := h.Wait(ctx)
*/
package emojidb
