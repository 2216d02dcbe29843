// Command audioflip is the AudioFlip CLI. It lists and switches audio output
// devices through the running daemon, manages the cycle rotation, and starts,
// stops, and inspects the daemon process.
package main
