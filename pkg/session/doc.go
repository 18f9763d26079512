/*
Package session runs conversations concurrently and hands out handles to
them.

A Hub starts one engine run per session, each on its own goroutine with its
own tree, and bridges the engine's channel contract onto an inbox/transcript
pair: Post feeds user text in, Entries and Await read the conversation back
out. Serving adapters (HTTP chat, MCP) are thin layers over these handles.

Sessions live in memory only. A finished session can be archived through the
hub's archiver hook, but a hub restart forgets everything that was running.
*/
package session
