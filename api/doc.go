// Package api exposes the REST surface of the Buckshot Roulette VR
// backend: lobby create/join/start, user registration and login, the
// leaderboard, a health check, and the two WebSocket endpoints.
//
// Routes:
//
//	GET  /                         health check
//	POST /game/lobby/create        create a lobby
//	POST /game/lobby/{id}/join     join a lobby (?user_id=)
//	POST /game/lobby/{id}/start    start the game in a lobby
//	GET  /game/lobby/{id}          lobby snapshot
//	GET  /game/lobby/{id}/session  started-session snapshot
//	GET  /game/lobbies             list lobbies
//	POST /user/register            register account
//	POST /user/login               login
//	GET  /user/profile/{id}        profile lookup
//	GET  /leaderboard              top scores (?limit=)
//	POST /leaderboard              submit a score
//	GET  /ws/info                  WebSocket usage and live counts
//	GET  /ws/game, /ws/chat        WebSocket upgrade
//
// Domain errors surface as JSON {"error": ...} with the status derived
// from the error kind: unknown ids map to 404, bad input and full lobbies
// to 400, duplicate registration to 409, bad credentials to 401.
package api
