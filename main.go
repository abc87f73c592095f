package main

import (
	"github.com/seetd/udacity-drlnd-collaboration-competition-project/examples"
)

func main() {
	examples.ActorCritic()
}
